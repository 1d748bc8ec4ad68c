package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/navcore/internal/core/ecs"
	coresys "github.com/l1jgo/navcore/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Phase 6 (Cleanup). It runs after PathMaintenanceSystem, so requests owned
// by entities destroyed this tick are swept on the next maintenance pass.
type CleanupSystem struct {
	world *ecs.World
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	n := s.world.PendingDestroy()
	if n == 0 {
		return
	}
	s.world.FlushDestroyQueue()
	s.log.Debug("entities destroyed", zap.Int("count", n), zap.Int("live", s.world.Pool().Live()))
}
