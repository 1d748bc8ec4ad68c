package system

import (
	"time"

	"github.com/l1jgo/navcore/internal/component"
	"github.com/l1jgo/navcore/internal/core/ecs"
	"github.com/l1jgo/navcore/internal/core/event"
	coresys "github.com/l1jgo/navcore/internal/core/system"
	"github.com/l1jgo/navcore/internal/scheduler"
)

// NavStores groups the component stores the navigation systems read.
type NavStores struct {
	Positions  *ecs.PtrComponentStore[component.Position]
	Agents     *ecs.PtrComponentStore[component.Agent]
	Navigators *ecs.PtrComponentStore[component.Navigator]
}

// NewNavStores creates and registers the navigation stores on w.
func NewNavStores(w *ecs.World) NavStores {
	return NavStores{
		Positions:  ecs.NewStore[component.Position](w),
		Agents:     ecs.NewStore[component.Agent](w),
		Navigators: ecs.NewStore[component.Navigator](w),
	}
}

// NavigationSystem hands resolved paths to waiting navigators and submits
// requests for navigators with a new goal. Phase 3 (PostUpdate).
type NavigationSystem struct {
	sched  *scheduler.Scheduler
	stores NavStores
	bus    *event.Bus
}

func NewNavigationSystem(sched *scheduler.Scheduler, stores NavStores, bus *event.Bus) *NavigationSystem {
	return &NavigationSystem{sched: sched, stores: stores, bus: bus}
}

func (s *NavigationSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *NavigationSystem) Update(_ time.Duration) {
	for _, id := range s.stores.Navigators.IDs() {
		nav, _ := s.stores.Navigators.Get(id)
		if nav.State != component.NavWaiting {
			continue
		}
		res, ok := s.sched.Poll(nav.Request)
		if !ok {
			if s.sched.State(nav.Request) == scheduler.StateUnknown {
				nav.State = component.NavFailed // dropped by maintenance
			}
			continue
		}
		nav.Follow(res.Waypoints)
		if s.bus != nil {
			event.Emit(s.bus, event.PathResolved{
				EntityID:  id,
				RequestID: uint64(res.ID),
				Found:     res.Found,
				FromCache: res.FromCache,
				Waypoints: len(res.Waypoints),
			})
		}
	}

	ecs.Each3(s.stores.Positions, s.stores.Agents, s.stores.Navigators,
		func(id ecs.EntityID, pos *component.Position, agent *component.Agent, nav *component.Navigator) {
			if nav.State != component.NavWantPath {
				return
			}
			nav.Request = s.sched.Submit(scheduler.PathRequest{
				Start:    pos.Vec2,
				Goal:     nav.Goal,
				Size:     agent.Size,
				Priority: agent.Priority,
				Owner:    id,
			})
			nav.State = component.NavWaiting
		})
}

// MovementSystem walks agents along their paths. Phase 3 (PostUpdate),
// registered after NavigationSystem.
type MovementSystem struct {
	stores NavStores
	bus    *event.Bus
}

func NewMovementSystem(stores NavStores, bus *event.Bus) *MovementSystem {
	return &MovementSystem{stores: stores, bus: bus}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MovementSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	ecs.Each3(s.stores.Positions, s.stores.Agents, s.stores.Navigators,
		func(id ecs.EntityID, pos *component.Position, agent *component.Agent, nav *component.Navigator) {
			budget := agent.Speed * secs
			for budget > 0 {
				wp, ok := nav.Waypoint()
				if !ok {
					return
				}
				d := pos.Dist(wp)
				if d > budget {
					pos.Vec2 = pos.Lerp(wp, budget/d)
					return
				}
				pos.Vec2 = wp
				budget -= d
				nav.Next++
				if nav.Next == len(nav.Path) {
					nav.State = component.NavIdle
					if s.bus != nil {
						event.Emit(s.bus, event.NavigatorArrived{EntityID: id})
					}
					return
				}
			}
		})
}
