package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: event dispatch, script input
	PhasePreUpdate               // 1: terrain sync
	PhaseUpdate                  // 2: collect finished searches, dispatch new ones
	PhasePostUpdate              // 3: hand paths to navigators, move agents
	PhaseOutput                  // 4: stats reporting
	PhasePersist                 // 5: terrain journal flush
	PhaseCleanup                 // 6: cache maintenance, destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
