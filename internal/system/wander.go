package system

import (
	"math/rand/v2"
	"time"

	"github.com/l1jgo/navcore/internal/component"
	"github.com/l1jgo/navcore/internal/core/ecs"
	coresys "github.com/l1jgo/navcore/internal/core/system"
	"github.com/l1jgo/navcore/internal/world"
)

// goalSearchRing bounds the ring search for a passable cell near a random point.
const goalSearchRing = 4

// WanderSystem gives idle and failed navigators a fresh random goal.
// Phase 2 (Update), so the request goes out in the same tick's PostUpdate.
type WanderSystem struct {
	grid   *world.Grid
	stores NavStores
	rng    *rand.Rand
}

func NewWanderSystem(grid *world.Grid, stores NavStores, seed uint64) *WanderSystem {
	return &WanderSystem{grid: grid, stores: stores, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *WanderSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WanderSystem) Update(_ time.Duration) {
	for _, id := range s.stores.Navigators.IDs() {
		nav, _ := s.stores.Navigators.Get(id)
		if nav.State != component.NavIdle && nav.State != component.NavFailed {
			continue
		}
		if goal, ok := RandomPassable(s.grid, s.rng); ok {
			nav.SetGoal(goal)
		}
	}
}

// RandomPassable picks a random cell and returns the centre of the nearest
// passable cell around it.
func RandomPassable(g *world.Grid, rng *rand.Rand) (world.Vec2, bool) {
	c := world.Cell{X: rng.Int32N(g.Width()), Y: rng.Int32N(g.Height())}
	return g.NearestPassable(g.WorldOf(c), goalSearchRing)
}

// SpawnWanderers creates n navigating entities at random passable cells and
// returns their ids. Fewer than n are created if the grid has no room.
func SpawnWanderers(w *ecs.World, stores NavStores, g *world.Grid, seed uint64, n int, agent component.Agent) []ecs.EntityID {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	ids := make([]ecs.EntityID, 0, n)
	for i := 0; i < n; i++ {
		at, ok := RandomPassable(g, rng)
		if !ok {
			continue
		}
		id := w.CreateEntity()
		a := agent
		stores.Positions.Set(id, &component.Position{Vec2: at})
		stores.Agents.Set(id, &a)
		stores.Navigators.Set(id, &component.Navigator{})
		ids = append(ids, id)
	}
	return ids
}
