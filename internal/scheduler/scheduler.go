// Package scheduler turns path requests into results across ticks: cache
// lookups on the tick goroutine, searches on a worker pool against terrain
// snapshots, and non-blocking collection of finished searches.
package scheduler

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/navcore/internal/core/ecs"
	"github.com/l1jgo/navcore/internal/pathcache"
	"github.com/l1jgo/navcore/internal/pathfind"
	"github.com/l1jgo/navcore/internal/world"
)

const (
	DefaultMaintenanceInterval = 5 * time.Second
	DefaultResultRetention     = 60 * time.Second
	DefaultSlowTick            = 10 * time.Millisecond
)

type pending struct {
	id  RequestID
	req PathRequest
}

type task struct {
	id      RequestID
	req     PathRequest
	key     pathcache.PathKey
	version uint64
	handle  *pathfind.Handle
}

type unpolled struct {
	result PathResult
	at     time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCache replaces the default cache.
func WithCache(c *pathcache.Cache) Option {
	return func(s *Scheduler) { s.cache = c }
}

// WithResultHandler registers fn to receive every result as it resolves.
// Results stay pollable as well.
func WithResultHandler(fn func(PathResult)) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// WithOwnerCheck enables orphan cleanup: work owned by entities for which
// alive returns false is discarded during maintenance.
func WithOwnerCheck(alive func(ecs.EntityID) bool) Option {
	return func(s *Scheduler) { s.ownerAlive = alive }
}

// WithMaintenanceInterval sets how often Maintain does work.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.maintenanceInterval = d }
}

// WithCacheTTL sets the idle expiry passed to the cache.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Scheduler) { s.cacheTTL = d }
}

// WithResultRetention sets how long an unpolled result is kept. 0 keeps it forever.
func WithResultRetention(d time.Duration) Option {
	return func(s *Scheduler) { s.resultRetention = d }
}

// WithSlowTick sets the Tick duration above which a warning is logged. 0 disables it.
func WithSlowTick(d time.Duration) Option {
	return func(s *Scheduler) { s.slowTick = d }
}

// WithTerrainObserver is called from SyncTerrain with each non-empty batch of
// edits, before the cache is invalidated. The slice is only valid during the call.
func WithTerrainObserver(fn func([]world.CellChange)) Option {
	return func(s *Scheduler) { s.onTerrain = fn }
}

// WithFirstID starts the request counter at id.
func WithFirstID(id uint64) Option {
	return func(s *Scheduler) { s.counter = NewCounter(id) }
}

// Scheduler owns the request lifecycle. It is not safe for concurrent use:
// every method must be called from the tick goroutine.
type Scheduler struct {
	grid  *world.Grid
	cache *pathcache.Cache
	pool  *pathfind.Pool
	log   *zap.Logger

	counter Counter
	queue   []pending
	tasks   []*task
	results map[RequestID]unpolled
	states  map[RequestID]RequestState
	changes world.ChangeSet

	onResult   func(PathResult)
	onTerrain  func([]world.CellChange)
	ownerAlive func(ecs.EntityID) bool

	maintenanceInterval time.Duration
	cacheTTL            time.Duration
	resultRetention     time.Duration
	slowTick            time.Duration
	lastMaintenance     time.Time
	now                 time.Time
}

// New builds a scheduler over the live grid. The pool is borrowed; the caller closes it.
func New(grid *world.Grid, pool *pathfind.Pool, opts ...Option) *Scheduler {
	s := &Scheduler{
		grid:                grid,
		pool:                pool,
		log:                 zap.NewNop(),
		results:             make(map[RequestID]unpolled),
		states:              make(map[RequestID]RequestState),
		maintenanceInterval: DefaultMaintenanceInterval,
		cacheTTL:            pathcache.DefaultTTL,
		resultRetention:     DefaultResultRetention,
		slowTick:            DefaultSlowTick,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = pathcache.New()
	}
	return s
}

// Grid returns the live grid.
func (s *Scheduler) Grid() *world.Grid { return s.grid }

// Cache returns the scheduler's cache.
func (s *Scheduler) Cache() *pathcache.Cache { return s.cache }

// Submit queues a request for the next dispatch and returns its id.
func (s *Scheduler) Submit(req PathRequest) RequestID {
	id := s.counter.Next()
	s.queue = append(s.queue, pending{id: id, req: req})
	s.states[id] = StateRequested
	return id
}

// Poll returns the result for id if it has resolved, and retires it.
func (s *Scheduler) Poll(id RequestID) (PathResult, bool) {
	u, ok := s.results[id]
	if !ok {
		return PathResult{}, false
	}
	delete(s.results, id)
	delete(s.states, id)
	return u.result, true
}

// State reports where id sits in its lifecycle.
func (s *Scheduler) State(id RequestID) RequestState {
	return s.states[id]
}

// NotifyTerrainChanged edits the live grid. Cache invalidation happens at the
// next SyncTerrain.
func (s *Scheduler) NotifyTerrainChanged(c world.Cell, class uint8) {
	s.grid.SetCell(c, class, &s.changes)
}

// PendingChanges returns the number of edits not yet synced.
func (s *Scheduler) PendingChanges() int { return s.changes.Len() }

// Counts reports queue sizes.
type Counts struct {
	Requested  int
	Dispatched int
	Unpolled   int
}

// Counts returns the current queue sizes.
func (s *Scheduler) Counts() Counts {
	return Counts{Requested: len(s.queue), Dispatched: len(s.tasks), Unpolled: len(s.results)}
}

// Tick runs one full cycle: terrain sync, collect, dispatch, maintenance.
func (s *Scheduler) Tick(now time.Time) {
	start := time.Now()
	s.now = now
	s.SyncTerrain()
	s.Collect()
	s.Dispatch()
	s.Maintain(now)
	if elapsed := time.Since(start); s.slowTick > 0 && elapsed > s.slowTick {
		s.log.Warn("slow path tick",
			zap.Duration("elapsed", elapsed),
			zap.Int("in_flight", len(s.tasks)))
	}
}

// SyncTerrain applies pending terrain edits to the cache as one batch.
func (s *Scheduler) SyncTerrain() {
	if s.changes.Empty() {
		return
	}
	n := s.changes.Len()
	if s.onTerrain != nil {
		s.onTerrain(s.changes.Changes())
	}
	s.cache.Invalidate(&s.changes)
	s.changes.Clear()
	s.log.Debug("terrain synced",
		zap.Int("cells", n),
		zap.Uint64("version", s.cache.Version()))
}

// Collect takes every finished search without blocking, commits it to the
// cache and delivers it.
func (s *Scheduler) Collect() {
	if len(s.tasks) == 0 {
		return
	}
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		res, ok := t.handle.TryTake()
		if !ok {
			kept = append(kept, t)
			continue
		}
		if !res.Truncated {
			p := pathcache.Path{Waypoints: res.Waypoints, Found: res.Found}
			s.cache.PutPathAt(t.key, p, pathcache.Footprint(s.grid, res.Waypoints, t.req.Size), t.version)
		}
		s.deliver(PathResult{
			ID:        t.id,
			Owner:     t.req.Owner,
			Start:     t.req.Start,
			Goal:      t.req.Goal,
			Size:      t.req.Size,
			Waypoints: res.Waypoints,
			Found:     res.Found,
			Truncated: res.Truncated,
		})
	}
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = kept
}

// Dispatch resolves queued requests from the cache where possible and hands
// the rest to the worker pool, highest priority first. Every cache hit of the
// call is delivered before the first search is submitted, and all searches
// started by one call share a single grid snapshot.
func (s *Scheduler) Dispatch() {
	if len(s.queue) == 0 {
		return
	}
	sort.SliceStable(s.queue, func(i, j int) bool {
		return s.queue[i].req.Priority > s.queue[j].req.Priority
	})

	type miss struct {
		p   pending
		key pathcache.PathKey
	}
	var misses []miss
	hits, blocked := 0, 0
	for _, p := range s.queue {
		sc, okS := s.grid.CellAt(p.req.Start)
		gc, okG := s.grid.CellAt(p.req.Goal)
		if !okS || !okG {
			blocked++
			s.deliver(s.resultFor(p, pathcache.Path{}, false))
			continue
		}
		key := pathcache.KeyFor(sc, gc, p.req.Size)
		if cached, ok := s.cache.GetPath(key); ok {
			hits++
			s.deliver(s.resultFor(p, cached, true))
			continue
		}
		if !s.passable(sc, p.req.Size) || !s.passable(gc, p.req.Size) {
			blocked++
			s.cache.PutPath(key, pathcache.Path{}, nil)
			s.deliver(s.resultFor(p, pathcache.Path{}, false))
			continue
		}
		misses = append(misses, miss{p: p, key: key})
	}

	if len(misses) > 0 {
		snap := s.grid.Snapshot()
		version := s.cache.Version()
		for _, m := range misses {
			s.tasks = append(s.tasks, &task{
				id:      m.p.id,
				req:     m.p.req,
				key:     m.key,
				version: version,
				handle: s.pool.Submit(pathfind.Job{
					Grid:  snap,
					Start: m.p.req.Start,
					Goal:  m.p.req.Goal,
					Size:  m.p.req.Size,
				}),
			})
			s.states[m.p.id] = StateDispatched
		}
	}
	for i := range s.queue {
		s.queue[i] = pending{}
	}
	s.queue = s.queue[:0]

	s.log.Debug("paths dispatched",
		zap.Int("cache_hits", hits),
		zap.Int("blocked", blocked),
		zap.Int("searches", len(misses)))
}

// Maintain evicts idle cache entries and sweeps orphaned and stale work.
// It does nothing until MaintenanceInterval has passed since the last run.
func (s *Scheduler) Maintain(now time.Time) {
	s.now = now
	if !s.lastMaintenance.IsZero() && now.Sub(s.lastMaintenance) < s.maintenanceInterval {
		return
	}
	s.lastMaintenance = now

	evicted := s.cache.EvictExpired(s.cacheTTL)
	orphans := s.sweepOrphans()
	expired := 0
	if s.resultRetention > 0 {
		for id, u := range s.results {
			if u.at.IsZero() {
				u.at = now
				s.results[id] = u
				continue
			}
			if now.Sub(u.at) > s.resultRetention {
				delete(s.results, id)
				delete(s.states, id)
				expired++
			}
		}
	}
	if evicted+orphans+expired > 0 {
		s.log.Debug("path maintenance",
			zap.Int("evicted", evicted),
			zap.Int("orphans", orphans),
			zap.Int("expired_results", expired),
			zap.Int("cache_size", s.cache.Stats().Size()))
	}
}

func (s *Scheduler) sweepOrphans() int {
	if s.ownerAlive == nil {
		return 0
	}
	dead := func(owner ecs.EntityID) bool {
		return !owner.IsZero() && !s.ownerAlive(owner)
	}
	n := 0

	queue := s.queue[:0]
	for _, p := range s.queue {
		if dead(p.req.Owner) {
			delete(s.states, p.id)
			n++
			continue
		}
		queue = append(queue, p)
	}
	s.queue = queue

	tasks := s.tasks[:0]
	for _, t := range s.tasks {
		if dead(t.req.Owner) {
			delete(s.states, t.id)
			n++
			continue
		}
		tasks = append(tasks, t)
	}
	for i := len(tasks); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = tasks

	for id, u := range s.results {
		if dead(u.result.Owner) {
			delete(s.results, id)
			delete(s.states, id)
			n++
		}
	}
	return n
}

// ResolveSync answers a query on the calling goroutine, through the cache.
// The returned result carries no request id.
func (s *Scheduler) ResolveSync(start, goal world.Vec2, size float64) PathResult {
	out := PathResult{Start: start, Goal: goal, Size: size}
	sc, okS := s.grid.CellAt(start)
	gc, okG := s.grid.CellAt(goal)
	if !okS || !okG {
		return out
	}
	key := pathcache.KeyFor(sc, gc, size)
	if cached, ok := s.cache.GetPath(key); ok {
		out.Waypoints, out.Found, out.FromCache = cached.Waypoints, cached.Found, true
		return out
	}
	res := pathfind.Search(context.Background(), s.grid, start, goal, size)
	s.cache.PutPath(key, pathcache.Path{Waypoints: res.Waypoints, Found: res.Found},
		pathcache.Footprint(s.grid, res.Waypoints, size))
	out.Waypoints, out.Found = res.Waypoints, res.Found
	return out
}

// passable answers the endpoint clearance check through the passability cache.
func (s *Scheduler) passable(c world.Cell, size float64) bool {
	if v, ok := s.cache.GetPassability(c, size); ok {
		return v
	}
	v := s.grid.PassableForRadius(s.grid.WorldOf(c), s.grid.RadiusForSize(size))
	s.cache.PutPassability(c, size, v)
	return v
}

func (s *Scheduler) resultFor(p pending, path pathcache.Path, fromCache bool) PathResult {
	return PathResult{
		ID:        p.id,
		Owner:     p.req.Owner,
		Start:     p.req.Start,
		Goal:      p.req.Goal,
		Size:      p.req.Size,
		Waypoints: path.Waypoints,
		Found:     path.Found,
		FromCache: fromCache,
	}
}

func (s *Scheduler) deliver(r PathResult) {
	s.states[r.ID] = StateResolved
	s.results[r.ID] = unpolled{result: r, at: s.now}
	if s.onResult != nil {
		s.onResult(r)
	}
}
