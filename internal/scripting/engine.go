package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/l1jgo/navcore/internal/scheduler"
	"github.com/l1jgo/navcore/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// APIVersion is exposed to scripts as API_VERSION.
const APIVersion = 1

// Engine wraps a single gopher-lua VM bound to one scheduler.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm    *lua.LState
	sched *scheduler.Scheduler
	log   *zap.Logger
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time passed to scheduler ticks driven from Lua.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a Lua engine, registers the navigation API and loads every
// *.lua file in scriptsDir in name order. An empty or missing dir loads nothing.
func NewEngine(scriptsDir string, sched *scheduler.Scheduler, log *zap.Logger, opts ...Option) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{vm: vm, sched: sched, log: log, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	e.register()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// HasFunction reports whether a global Lua function with that name exists.
func (e *Engine) HasFunction(name string) bool {
	return e.vm.GetGlobal(name).Type() == lua.LTFunction
}

// CallHook calls the global function name with the tick number. A missing
// function is not an error.
func (e *Engine) CallHook(name string, tick uint64) error {
	fn := e.vm.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(tick)); err != nil {
		return fmt.Errorf("lua %s: %w", name, err)
	}
	return nil
}

func (e *Engine) register() {
	for name, fn := range map[string]lua.LGFunction{
		"submit":      e.luaSubmit,
		"poll":        e.luaPoll,
		"state":       e.luaState,
		"tick":        e.luaTick,
		"set_cell":    e.luaSetCell,
		"passable":    e.luaPassable,
		"find_path":   e.luaFindPath,
		"cache_stats": e.luaCacheStats,
		"cell_at":     e.luaCellAt,
		"world_of":    e.luaWorldOf,
	} {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// submit(sx, sy, gx, gy, size [, priority]) -> id
func (e *Engine) luaSubmit(L *lua.LState) int {
	pri, ok := scheduler.ParsePriority(L.OptString(6, ""))
	if !ok {
		L.ArgError(6, "unknown priority")
		return 0
	}
	id := e.sched.Submit(scheduler.PathRequest{
		Start:    checkVec(L, 1),
		Goal:     checkVec(L, 3),
		Size:     float64(L.CheckNumber(5)),
		Priority: pri,
	})
	L.Push(lua.LNumber(id))
	return 1
}

// poll(id) -> result table or nil
func (e *Engine) luaPoll(L *lua.LState) int {
	r, ok := e.sched.Poll(scheduler.RequestID(L.CheckNumber(1)))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.resultTable(r))
	return 1
}

// state(id) -> "requested" | "dispatched" | "resolved" | "unknown"
func (e *Engine) luaState(L *lua.LState) int {
	L.Push(lua.LString(e.sched.State(scheduler.RequestID(L.CheckNumber(1))).String()))
	return 1
}

// tick() runs one scheduler cycle.
func (e *Engine) luaTick(L *lua.LState) int {
	e.sched.Tick(e.now())
	return 0
}

// set_cell(cx, cy, class) where class is a terrain name or index.
func (e *Engine) luaSetCell(L *lua.LState) int {
	c := world.Cell{X: int32(L.CheckInt(1)), Y: int32(L.CheckInt(2))}
	terrain := e.sched.Grid().Terrain()
	var class uint8
	switch v := L.Get(3).(type) {
	case lua.LString:
		idx, ok := terrain.Lookup(string(v))
		if !ok {
			L.ArgError(3, "unknown terrain class "+string(v))
			return 0
		}
		class = idx
	case lua.LNumber:
		if v < 0 || int(v) >= terrain.Len() {
			L.ArgError(3, "terrain index out of range")
			return 0
		}
		class = uint8(v)
	default:
		L.TypeError(3, lua.LTString)
		return 0
	}
	e.sched.NotifyTerrainChanged(c, class)
	return 0
}

// passable(x, y, size) -> bool
func (e *Engine) luaPassable(L *lua.LState) int {
	g := e.sched.Grid()
	p := checkVec(L, 1)
	L.Push(lua.LBool(g.PassableForRadius(p, g.RadiusForSize(float64(L.CheckNumber(3))))))
	return 1
}

// find_path(sx, sy, gx, gy, size) -> result table
func (e *Engine) luaFindPath(L *lua.LState) int {
	r := e.sched.ResolveSync(checkVec(L, 1), checkVec(L, 3), float64(L.CheckNumber(5)))
	L.Push(e.resultTable(r))
	return 1
}

// cache_stats() -> table
func (e *Engine) luaCacheStats(L *lua.LState) int {
	c := e.sched.Cache()
	s := c.Stats()
	t := L.NewTable()
	t.RawSetString("path_hits", lua.LNumber(s.PathHits))
	t.RawSetString("path_misses", lua.LNumber(s.PathMisses))
	t.RawSetString("pass_hits", lua.LNumber(s.PassHits))
	t.RawSetString("pass_misses", lua.LNumber(s.PassMisses))
	t.RawSetString("invalidations", lua.LNumber(s.Invalidations))
	t.RawSetString("evictions", lua.LNumber(s.Evictions))
	t.RawSetString("paths", lua.LNumber(s.Paths))
	t.RawSetString("passability", lua.LNumber(s.Passability))
	t.RawSetString("size", lua.LNumber(s.Size()))
	t.RawSetString("version", lua.LNumber(c.Version()))
	t.RawSetString("hit_ratio", lua.LNumber(c.HitRatio()))
	L.Push(t)
	return 1
}

// cell_at(x, y) -> cx, cy or nil
func (e *Engine) luaCellAt(L *lua.LState) int {
	c, ok := e.sched.Grid().CellAt(checkVec(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(c.X))
	L.Push(lua.LNumber(c.Y))
	return 2
}

// world_of(cx, cy) -> x, y
func (e *Engine) luaWorldOf(L *lua.LState) int {
	p := e.sched.Grid().WorldOf(world.Cell{X: int32(L.CheckInt(1)), Y: int32(L.CheckInt(2))})
	L.Push(lua.LNumber(p.X))
	L.Push(lua.LNumber(p.Y))
	return 2
}

func (e *Engine) resultTable(r scheduler.PathResult) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(r.ID))
	t.RawSetString("found", lua.LBool(r.Found))
	t.RawSetString("from_cache", lua.LBool(r.FromCache))
	t.RawSetString("truncated", lua.LBool(r.Truncated))
	wps := e.vm.NewTable()
	for _, p := range r.Waypoints {
		wp := e.vm.NewTable()
		wp.RawSetString("x", lua.LNumber(p.X))
		wp.RawSetString("y", lua.LNumber(p.Y))
		wps.Append(wp)
	}
	t.RawSetString("waypoints", wps)
	return t
}

// checkVec reads two consecutive number arguments starting at n.
func checkVec(L *lua.LState, n int) world.Vec2 {
	return world.Vec2{X: float64(L.CheckNumber(n)), Y: float64(L.CheckNumber(n + 1))}
}

// Global returns a Lua global as a Go value: numbers, strings and bools map to
// float64, string and bool; anything else is nil.
func (e *Engine) Global(name string) any {
	switch v := e.vm.GetGlobal(name).(type) {
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case lua.LBool:
		return bool(v)
	}
	return nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
