package system

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/navcore/internal/component"
	"github.com/l1jgo/navcore/internal/core/ecs"
	"github.com/l1jgo/navcore/internal/core/event"
	coresys "github.com/l1jgo/navcore/internal/core/system"
	"github.com/l1jgo/navcore/internal/pathfind"
	"github.com/l1jgo/navcore/internal/scheduler"
	"github.com/l1jgo/navcore/internal/world"
)

type harness struct {
	world  *ecs.World
	grid   *world.Grid
	sched  *scheduler.Scheduler
	stores NavStores
	bus    *event.Bus
	runner *coresys.Runner
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	g, err := world.NewGrid(10, 10, 1, world.DefaultTerrainTable(), world.ClassGrass)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	pool := pathfind.NewPool(pathfind.WithWorkers(2))
	t.Cleanup(func() { pool.Close() })

	h := &harness{world: ecs.NewWorld(), grid: g, bus: event.NewBus(), now: time.Unix(1_700_000_000, 0)}
	h.sched = scheduler.New(g, pool,
		scheduler.WithOwnerCheck(h.world.Alive),
		scheduler.WithMaintenanceInterval(time.Second))
	h.stores = NewNavStores(h.world)

	log := zap.NewNop()
	h.runner = coresys.NewRunner()
	h.runner.Register(NewPathMaintenanceSystem(h.sched, func() time.Time { return h.now }))
	h.runner.Register(NewCleanupSystem(h.world, log))
	h.runner.Register(NewEventDispatchSystem(h.bus))
	h.runner.Register(NewTerrainSyncSystem(h.sched, h.bus))
	h.runner.Register(NewPathCollectSystem(h.sched))
	h.runner.Register(NewPathDispatchSystem(h.sched))
	h.runner.Register(NewNavigationSystem(h.sched, h.stores, h.bus))
	h.runner.Register(NewMovementSystem(h.stores, h.bus))
	h.runner.Register(NewPathStatsSystem(h.sched, log, time.Second))
	return h
}

func (h *harness) spawn(at world.Cell, goal world.Cell) ecs.EntityID {
	id := h.world.CreateEntity()
	h.stores.Positions.Set(id, &component.Position{Vec2: h.grid.WorldOf(at)})
	h.stores.Agents.Set(id, &component.Agent{Size: 0.5, Speed: 50})
	nav := &component.Navigator{}
	nav.SetGoal(h.grid.WorldOf(goal))
	h.stores.Navigators.Set(id, nav)
	return id
}

func (h *harness) tick() {
	h.now = h.now.Add(100 * time.Millisecond)
	h.runner.Tick(100 * time.Millisecond)
	time.Sleep(time.Millisecond)
}

func TestNavigatorReachesGoal(t *testing.T) {
	h := newHarness(t)
	var resolved []event.PathResolved
	arrived := 0
	event.Subscribe(h.bus, func(e event.PathResolved) { resolved = append(resolved, e) })
	event.Subscribe(h.bus, func(event.NavigatorArrived) { arrived++ })

	id := h.spawn(world.Cell{X: 1, Y: 1}, world.Cell{X: 8, Y: 6})
	for i := 0; i < 500 && arrived == 0; i++ {
		h.tick()
	}
	if arrived != 1 {
		t.Fatal("navigator never arrived")
	}
	pos, _ := h.stores.Positions.Get(id)
	if pos.Vec2 != h.grid.WorldOf(world.Cell{X: 8, Y: 6}) {
		t.Errorf("position = %v", pos.Vec2)
	}
	if len(resolved) != 1 || !resolved[0].Found || resolved[0].EntityID != id {
		t.Errorf("resolved events = %+v", resolved)
	}

	// The same trip again is served from the cache.
	nav, _ := h.stores.Navigators.Get(id)
	pos.Vec2 = h.grid.WorldOf(world.Cell{X: 1, Y: 1})
	nav.SetGoal(h.grid.WorldOf(world.Cell{X: 8, Y: 6}))
	for i := 0; i < 10 && len(resolved) < 2; i++ {
		h.tick()
	}
	if len(resolved) != 2 || !resolved[1].FromCache {
		t.Errorf("second trip = %+v", resolved)
	}
}

func TestUnreachableGoalFails(t *testing.T) {
	h := newHarness(t)
	h.sched.NotifyTerrainChanged(world.Cell{X: 7, Y: 7}, world.ClassWater)
	var synced []event.TerrainSynced
	event.Subscribe(h.bus, func(e event.TerrainSynced) { synced = append(synced, e) })

	id := h.spawn(world.Cell{X: 1, Y: 1}, world.Cell{X: 7, Y: 7})
	nav, _ := h.stores.Navigators.Get(id)
	for i := 0; i < 50 && nav.State != component.NavFailed; i++ {
		h.tick()
	}
	if nav.State != component.NavFailed {
		t.Fatalf("state = %v", nav.State)
	}
	if len(synced) != 1 || synced[0].Cells != 1 {
		t.Errorf("terrain events = %+v", synced)
	}
}

func TestDestroyedEntityWorkIsSwept(t *testing.T) {
	h := newHarness(t)
	id := h.spawn(world.Cell{X: 1, Y: 1}, world.Cell{X: 8, Y: 8})
	h.tick() // request submitted
	nav, _ := h.stores.Navigators.Get(id)
	req := nav.Request
	if h.sched.State(req) != scheduler.StateRequested {
		t.Fatalf("state = %v", h.sched.State(req))
	}

	h.world.MarkForDestruction(id)
	for i := 0; i < 30; i++ {
		h.tick()
	}
	if h.sched.State(req) != scheduler.StateUnknown {
		t.Errorf("orphaned request state = %v", h.sched.State(req))
	}
	if h.stores.Navigators.Has(id) {
		t.Error("components survived destruction")
	}
}
