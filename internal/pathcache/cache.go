// Package pathcache memoises path and clearance results against a terrain
// version, with targeted invalidation through a cell → path spatial index.
package pathcache

import (
	"math"
	"slices"
	"time"

	"github.com/l1jgo/navcore/internal/world"
)

// DefaultTTL is the idle time after which EvictExpired drops an entry.
const DefaultTTL = 30 * time.Second

// PassabilityPurgeRadius is the Chebyshev distance, in cells, around each
// changed cell within which cached passability answers are dropped.
const PassabilityPurgeRadius = 3

// PathKey identifies a cached path.
type PathKey struct {
	Start world.Cell
	Goal  world.Cell
	Tier  uint8
}

// KeyFor builds the key for a request of the given size.
func KeyFor(start, goal world.Cell, size float64) PathKey {
	return PathKey{Start: start, Goal: goal, Tier: Quantize(size)}
}

type passKey struct {
	cell world.Cell
	tier uint8
}

// Path is a cached search outcome. Found=false with nil Waypoints records a
// known-unreachable goal.
type Path struct {
	Waypoints []world.Vec2
	Found     bool
}

type cachedPath struct {
	path       Path
	version    uint64
	lastAccess time.Time
	footprint  []world.Cell
}

type cachedPassability struct {
	passable   bool
	version    uint64
	lastAccess time.Time
}

// Stats counts cache activity since construction.
type Stats struct {
	PathHits      uint64
	PathMisses    uint64
	PassHits      uint64
	PassMisses    uint64
	Invalidations uint64 // batches that bumped the version
	Evictions     uint64 // entries dropped by EvictExpired
	StalePuts     uint64 // PutPathAt results older than the current version
	Paths         int
	Passability   int
}

// Size is the total number of live entries.
func (s Stats) Size() int { return s.Paths + s.Passability }

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now for last-access stamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache is not safe for concurrent use; it belongs to the tick goroutine.
type Cache struct {
	paths   map[PathKey]*cachedPath
	pass    map[passKey]*cachedPassability
	tiers   map[world.Cell][]uint8
	index   map[world.Cell][]PathKey
	version uint64
	stats   Stats
	now     func() time.Time
}

// New returns an empty cache at terrain version 1.
func New(opts ...Option) *Cache {
	c := &Cache{
		paths:   make(map[PathKey]*cachedPath, 512),
		pass:    make(map[passKey]*cachedPassability, 1024),
		tiers:   make(map[world.Cell][]uint8, 1024),
		index:   make(map[world.Cell][]PathKey),
		version: 1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the current terrain version.
func (c *Cache) Version() uint64 { return c.version }

// Quantize buckets an agent size into 1/8-cell tiers, clamped to a byte.
func Quantize(size float64) uint8 {
	if !(size > 0) {
		return 0
	}
	q := math.Round(size * 8)
	if q > 255 {
		return 255
	}
	return uint8(q)
}

// GetPath returns the cached path for key if it was stored at the current
// version. Stale entries are evicted on sight.
func (c *Cache) GetPath(key PathKey) (Path, bool) {
	e, ok := c.paths[key]
	if ok && e.version == c.version {
		e.lastAccess = c.now()
		c.stats.PathHits++
		return Path{Waypoints: slices.Clone(e.path.Waypoints), Found: e.path.Found}, true
	}
	if ok {
		c.removePath(key, e)
	}
	c.stats.PathMisses++
	return Path{}, false
}

// PutPath stores p at the current version and indexes its footprint.
func (c *Cache) PutPath(key PathKey, p Path, footprint []world.Cell) {
	c.PutPathAt(key, p, footprint, c.version)
}

// PutPathAt stores p computed against terrain version v. Results from an older
// version are dropped and PutPathAt reports false.
func (c *Cache) PutPathAt(key PathKey, p Path, footprint []world.Cell, v uint64) bool {
	if v != c.version {
		c.stats.StalePuts++
		return false
	}
	if old, ok := c.paths[key]; ok {
		c.unindex(key, old.footprint)
	}
	e := &cachedPath{
		path:       Path{Waypoints: slices.Clone(p.Waypoints), Found: p.Found},
		version:    v,
		lastAccess: c.now(),
	}
	if p.Found {
		e.footprint = slices.Clone(footprint)
	}
	for _, cell := range e.footprint {
		c.index[cell] = append(c.index[cell], key)
	}
	c.paths[key] = e
	return true
}

// GetPassability returns the cached clearance answer for a cell and size.
func (c *Cache) GetPassability(cell world.Cell, size float64) (bool, bool) {
	k := passKey{cell: cell, tier: Quantize(size)}
	e, ok := c.pass[k]
	if ok && e.version == c.version {
		e.lastAccess = c.now()
		c.stats.PassHits++
		return e.passable, true
	}
	if ok {
		c.dropPassability(k)
	}
	c.stats.PassMisses++
	return false, false
}

// PutPassability stores a clearance answer at the current version.
func (c *Cache) PutPassability(cell world.Cell, size float64, passable bool) {
	k := passKey{cell: cell, tier: Quantize(size)}
	if _, ok := c.pass[k]; !ok {
		c.tiers[cell] = append(c.tiers[cell], k.tier)
	}
	c.pass[k] = &cachedPassability{
		passable:   passable,
		version:    c.version,
		lastAccess: c.now(),
	}
}

// Invalidate applies one batch of terrain edits: the version is bumped once,
// passability answers near each edit are purged and every path whose
// footprint contains an edited cell is removed. An empty batch is a no-op.
func (c *Cache) Invalidate(cs *world.ChangeSet) {
	if cs == nil || cs.Empty() {
		return
	}
	c.version++
	c.stats.Invalidations++

	doomed := make(map[PathKey]struct{})
	for _, ch := range cs.Changes() {
		c.purgePassabilityAround(ch.Cell)
		for _, k := range c.index[ch.Cell] {
			doomed[k] = struct{}{}
		}
	}
	for k := range doomed {
		if e, ok := c.paths[k]; ok {
			c.removePath(k, e)
		}
	}
}

// purgePassabilityAround visits only the cells within PassabilityPurgeRadius
// of center, using the per-cell tier index.
func (c *Cache) purgePassabilityAround(center world.Cell) {
	for dx := int32(-PassabilityPurgeRadius); dx <= PassabilityPurgeRadius; dx++ {
		for dy := int32(-PassabilityPurgeRadius); dy <= PassabilityPurgeRadius; dy++ {
			cell := world.Cell{X: center.X + dx, Y: center.Y + dy}
			for _, tier := range c.tiers[cell] {
				delete(c.pass, passKey{cell: cell, tier: tier})
			}
			delete(c.tiers, cell)
		}
	}
}

func (c *Cache) dropPassability(k passKey) {
	delete(c.pass, k)
	tiers := slices.DeleteFunc(c.tiers[k.cell], func(t uint8) bool { return t == k.tier })
	if len(tiers) == 0 {
		delete(c.tiers, k.cell)
	} else {
		c.tiers[k.cell] = tiers
	}
}

// EvictExpired drops entries idle for longer than ttl and returns how many
// were removed.
func (c *Cache) EvictExpired(ttl time.Duration) int {
	now := c.now()
	n := 0
	for k, e := range c.paths {
		if now.Sub(e.lastAccess) > ttl {
			c.removePath(k, e)
			n++
		}
	}
	for k, e := range c.pass {
		if now.Sub(e.lastAccess) > ttl {
			c.dropPassability(k)
			n++
		}
	}
	c.stats.Evictions += uint64(n)
	return n
}

// Stats returns a copy of the counters with current sizes filled in.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.Paths = len(c.paths)
	s.Passability = len(c.pass)
	return s
}

// HitRatio is path hits over path lookups, 0 before any lookup.
func (c *Cache) HitRatio() float64 {
	total := c.stats.PathHits + c.stats.PathMisses
	if total == 0 {
		return 0
	}
	return float64(c.stats.PathHits) / float64(total)
}

// PassabilityCells returns the number of cells holding at least one cached
// passability answer.
func (c *Cache) PassabilityCells() int { return len(c.tiers) }

// IndexedCells returns the number of cells present in the spatial index.
func (c *Cache) IndexedCells() int { return len(c.index) }

func (c *Cache) removePath(k PathKey, e *cachedPath) {
	delete(c.paths, k)
	c.unindex(k, e.footprint)
}

func (c *Cache) unindex(k PathKey, footprint []world.Cell) {
	for _, cell := range footprint {
		keys := c.index[cell]
		keys = slices.DeleteFunc(keys, func(o PathKey) bool { return o == k })
		if len(keys) == 0 {
			delete(c.index, cell)
		} else {
			c.index[cell] = keys
		}
	}
}

// Footprint returns the in-bounds cells within ceil(size/2) cells of any
// waypoint. Each cell appears once.
func Footprint(g *world.Grid, waypoints []world.Vec2, size float64) []world.Cell {
	if len(waypoints) == 0 {
		return nil
	}
	reach := int32(math.Ceil(math.Max(size, 0) / 2))
	seen := make(map[world.Cell]struct{}, len(waypoints)*int((2*reach+1)*(2*reach+1)))
	out := make([]world.Cell, 0, len(seen))
	for _, p := range waypoints {
		center, ok := g.CellAt(p)
		if !ok {
			continue
		}
		for dx := -reach; dx <= reach; dx++ {
			for dy := -reach; dy <= reach; dy++ {
				cell := world.Cell{X: center.X + dx, Y: center.Y + dy}
				if !g.InBounds(cell) {
					continue
				}
				if _, dup := seen[cell]; dup {
					continue
				}
				seen[cell] = struct{}{}
				out = append(out, cell)
			}
		}
	}
	return out
}
