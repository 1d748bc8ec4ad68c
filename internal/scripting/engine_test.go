package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/navcore/internal/pathfind"
	"github.com/l1jgo/navcore/internal/scheduler"
	"github.com/l1jgo/navcore/internal/world"
)

func newTestEngine(t *testing.T, dir string) (*Engine, *scheduler.Scheduler) {
	t.Helper()
	g, err := world.NewGrid(12, 12, 1, world.DefaultTerrainTable(), world.ClassGrass)
	if err != nil {
		t.Fatal(err)
	}
	pool := pathfind.NewPool(pathfind.WithWorkers(2))
	t.Cleanup(func() { pool.Close() })
	sched := scheduler.New(g, pool)

	e, err := NewEngine(dir, sched, nil, WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, sched
}

func run(t *testing.T, e *Engine, src string) {
	t.Helper()
	if err := e.DoString(src); err != nil {
		t.Fatalf("lua: %v", err)
	}
}

func TestGridHelpers(t *testing.T) {
	e, _ := newTestEngine(t, "")
	run(t, e, `
		local x, y = world_of(1, 2)
		wx, wy = x, y
		cx, cy = cell_at(x, y)
		outside = cell_at(100, 100) == nil
	`)
	if e.Global("wx") != -4.5 || e.Global("wy") != -3.5 {
		t.Errorf("world_of(1,2) = %v,%v", e.Global("wx"), e.Global("wy"))
	}
	if e.Global("cx") != 1.0 || e.Global("cy") != 2.0 {
		t.Errorf("cell_at round trip = %v,%v", e.Global("cx"), e.Global("cy"))
	}
	if e.Global("outside") != true {
		t.Error("cell_at outside the grid should be nil")
	}
	if e.Global("API_VERSION") != float64(APIVersion) {
		t.Error("API_VERSION missing")
	}
}

func TestFindPathAndStats(t *testing.T) {
	e, _ := newTestEngine(t, "")
	run(t, e, `
		local sx, sy = world_of(1, 1)
		local gx, gy = world_of(8, 1)
		local r = find_path(sx, sy, gx, gy, 1)
		found, count, first_cached = r.found, #r.waypoints, r.from_cache
		last_x = r.waypoints[#r.waypoints].x
		second_cached = find_path(sx, sy, gx, gy, 1).from_cache
		local s = cache_stats()
		hits, misses, paths = s.path_hits, s.path_misses, s.paths
	`)
	if e.Global("found") != true || e.Global("count") != 8.0 {
		t.Errorf("found=%v count=%v", e.Global("found"), e.Global("count"))
	}
	if e.Global("last_x") != 2.5 {
		t.Errorf("path should end at the goal centre, last_x = %v", e.Global("last_x"))
	}
	if e.Global("first_cached") != false || e.Global("second_cached") != true {
		t.Error("second identical query should come from the cache")
	}
	if e.Global("hits") != 1.0 || e.Global("misses") != 1.0 || e.Global("paths") != 1.0 {
		t.Errorf("stats hits=%v misses=%v paths=%v", e.Global("hits"), e.Global("misses"), e.Global("paths"))
	}
}

func TestSubmitTickPoll(t *testing.T) {
	e, sched := newTestEngine(t, "")
	run(t, e, `
		local sx, sy = world_of(1, 1)
		local gx, gy = world_of(9, 7)
		id = submit(sx, sy, gx, gy, 1, "high")
		before = state(id)
	`)
	if e.Global("before") != "requested" {
		t.Fatalf("state before tick = %v", e.Global("before"))
	}
	id := scheduler.RequestID(e.Global("id").(float64))

	deadline := time.Now().Add(5 * time.Second)
	for sched.State(id) != scheduler.StateResolved {
		if time.Now().After(deadline) {
			t.Fatalf("request stuck in %v", sched.State(id))
		}
		run(t, e, `tick()`)
		time.Sleep(time.Millisecond)
	}
	run(t, e, `
		local r = poll(id)
		found = r.found
		after = state(id)
		again = poll(id) == nil
	`)
	if e.Global("found") != true || e.Global("after") != "unknown" || e.Global("again") != true {
		t.Errorf("found=%v after=%v again=%v", e.Global("found"), e.Global("after"), e.Global("again"))
	}
}

func TestSetCell(t *testing.T) {
	e, sched := newTestEngine(t, "")
	run(t, e, `
		set_cell(5, 5, "stone")
		set_cell(6, 6, 3)
		local x, y = world_of(5, 5)
		blocked = not passable(x, y, 0.5)
		local ox, oy = world_of(1, 10)
		open = passable(ox, oy, 0.5)
	`)
	if e.Global("blocked") != true || e.Global("open") != true {
		t.Errorf("blocked=%v open=%v", e.Global("blocked"), e.Global("open"))
	}
	if cls, _ := sched.Grid().ClassAt(world.Cell{X: 6, Y: 6}); cls != world.ClassWater {
		t.Errorf("class by index = %d", cls)
	}
	if n := sched.PendingChanges(); n != 2 {
		t.Errorf("pending changes = %d, want 2", n)
	}
}

func TestBindingErrors(t *testing.T) {
	e, _ := newTestEngine(t, "")
	for _, src := range []string{
		`set_cell(1, 1, "lava")`,
		`set_cell(1, 1, 99)`,
		`set_cell(1, 1, true)`,
		`submit(0, 0, 1, 1, 1, "urgent")`,
		`submit("a")`,
	} {
		if err := e.DoString(src); err == nil {
			t.Errorf("%s: expected an error", src)
		}
	}
}

func TestLoadDirAndHooks(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.lua":     "counter = 1",
		"b.lua":     "counter = counter + 1\nfunction on_tick(n) last_tick = n end",
		"notes.txt": "this is not lua",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, _ := newTestEngine(t, dir)
	if e.Global("counter") != 2.0 {
		t.Errorf("scripts loaded out of order, counter = %v", e.Global("counter"))
	}
	if !e.HasFunction("on_tick") || e.HasFunction("missing") {
		t.Error("HasFunction wrong")
	}
	if err := e.CallHook("on_tick", 7); err != nil {
		t.Fatal(err)
	}
	if e.Global("last_tick") != 7.0 {
		t.Errorf("last_tick = %v", e.Global("last_tick"))
	}
	if err := e.CallHook("missing", 1); err != nil {
		t.Errorf("missing hook: %v", err)
	}

	run(t, e, `function on_tick(n) error("boom") end`)
	if err := e.CallHook("on_tick", 1); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("hook error = %v", err)
	}
}

func TestLoadDirBadScript(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("this is not lua"), 0o644)
	g, _ := world.NewGrid(4, 4, 1, nil, 0)
	pool := pathfind.NewPool(pathfind.WithWorkers(1))
	defer pool.Close()
	if _, err := NewEngine(dir, scheduler.New(g, pool), nil); err == nil {
		t.Error("syntax error not reported")
	}
}
