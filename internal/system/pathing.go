package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/navcore/internal/core/event"
	coresys "github.com/l1jgo/navcore/internal/core/system"
	"github.com/l1jgo/navcore/internal/scheduler"
)

// TerrainSyncSystem pushes the tick's terrain edits into the path cache.
// Phase 1 (PreUpdate).
type TerrainSyncSystem struct {
	sched *scheduler.Scheduler
	bus   *event.Bus
}

func NewTerrainSyncSystem(sched *scheduler.Scheduler, bus *event.Bus) *TerrainSyncSystem {
	return &TerrainSyncSystem{sched: sched, bus: bus}
}

func (s *TerrainSyncSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *TerrainSyncSystem) Update(_ time.Duration) {
	n := s.sched.PendingChanges()
	if n == 0 {
		return
	}
	s.sched.SyncTerrain()
	if s.bus != nil {
		event.Emit(s.bus, event.TerrainSynced{Cells: n, Version: s.sched.Cache().Version()})
	}
}

// PathCollectSystem takes finished searches off the worker pool.
// Phase 2 (Update), registered before PathDispatchSystem.
type PathCollectSystem struct {
	sched *scheduler.Scheduler
}

func NewPathCollectSystem(sched *scheduler.Scheduler) *PathCollectSystem {
	return &PathCollectSystem{sched: sched}
}

func (s *PathCollectSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PathCollectSystem) Update(_ time.Duration) { s.sched.Collect() }

// PathDispatchSystem resolves or dispatches the tick's queued requests.
// Phase 2 (Update).
type PathDispatchSystem struct {
	sched *scheduler.Scheduler
}

func NewPathDispatchSystem(sched *scheduler.Scheduler) *PathDispatchSystem {
	return &PathDispatchSystem{sched: sched}
}

func (s *PathDispatchSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PathDispatchSystem) Update(_ time.Duration) { s.sched.Dispatch() }

// PathMaintenanceSystem evicts idle cache entries and sweeps orphaned work on
// the scheduler's own interval. Phase 6 (Cleanup).
type PathMaintenanceSystem struct {
	sched *scheduler.Scheduler
	now   func() time.Time
}

func NewPathMaintenanceSystem(sched *scheduler.Scheduler, now func() time.Time) *PathMaintenanceSystem {
	if now == nil {
		now = time.Now
	}
	return &PathMaintenanceSystem{sched: sched, now: now}
}

func (s *PathMaintenanceSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *PathMaintenanceSystem) Update(_ time.Duration) { s.sched.Maintain(s.now()) }

// PathStatsSystem logs cache and queue figures every interval. Phase 4 (Output).
type PathStatsSystem struct {
	sched    *scheduler.Scheduler
	log      *zap.Logger
	interval time.Duration
	elapsed  time.Duration
}

func NewPathStatsSystem(sched *scheduler.Scheduler, log *zap.Logger, interval time.Duration) *PathStatsSystem {
	return &PathStatsSystem{sched: sched, log: log, interval: interval}
}

func (s *PathStatsSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *PathStatsSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	st := s.sched.Cache().Stats()
	c := s.sched.Counts()
	s.log.Info("path cache",
		zap.Uint64("hits", st.PathHits),
		zap.Uint64("misses", st.PathMisses),
		zap.Float64("hit_ratio", s.sched.Cache().HitRatio()),
		zap.Int("entries", st.Size()),
		zap.Uint64("version", s.sched.Cache().Version()),
		zap.Int("in_flight", c.Dispatched),
		zap.Int("unpolled", c.Unpolled))
}
