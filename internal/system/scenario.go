package system

import (
	"time"

	coresys "github.com/l1jgo/navcore/internal/core/system"
	"github.com/l1jgo/navcore/internal/scripting"
	"go.uber.org/zap"
)

// ScenarioSystem calls a Lua hook once per tick with the tick number.
// Phase 0 (Input), registered after EventDispatchSystem.
type ScenarioSystem struct {
	engine *scripting.Engine
	hook   string
	log    *zap.Logger
	tick   uint64
	errors int
}

func NewScenarioSystem(engine *scripting.Engine, hook string, log *zap.Logger) *ScenarioSystem {
	return &ScenarioSystem{engine: engine, hook: hook, log: log}
}

func (s *ScenarioSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScenarioSystem) Update(_ time.Duration) {
	s.tick++
	if err := s.engine.CallHook(s.hook, s.tick); err != nil {
		s.errors++
		// First failure and every hundredth after that.
		if s.errors%100 == 1 {
			s.log.Warn("scenario hook failed",
				zap.String("hook", s.hook),
				zap.Uint64("tick", s.tick),
				zap.Int("failures", s.errors),
				zap.Error(err))
		}
	}
}

// Errors returns how many hook calls have failed.
func (s *ScenarioSystem) Errors() int { return s.errors }
