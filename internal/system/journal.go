package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/navcore/internal/core/system"
	"github.com/l1jgo/navcore/internal/world"
)

// TerrainAppender stores batches of terrain edits for one map.
type TerrainAppender interface {
	Append(ctx context.Context, mapID int, changes []world.CellChange) error
}

// JournalSystem buffers synced terrain edits and writes them once per tick.
// Phase 5 (Persist). A failed write keeps the buffer for the next tick.
type JournalSystem struct {
	store   TerrainAppender
	mapID   int
	log     *zap.Logger
	timeout time.Duration
	pending []world.CellChange
}

func NewJournalSystem(store TerrainAppender, mapID int, log *zap.Logger) *JournalSystem {
	return &JournalSystem{store: store, mapID: mapID, log: log, timeout: 2 * time.Second}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Observe copies a synced batch into the buffer. Pass it to
// scheduler.WithTerrainObserver.
func (s *JournalSystem) Observe(changes []world.CellChange) {
	s.pending = append(s.pending, changes...)
}

// Pending returns the number of buffered edits.
func (s *JournalSystem) Pending() int { return len(s.pending) }

func (s *JournalSystem) Update(_ time.Duration) {
	if len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Append(ctx, s.mapID, s.pending); err != nil {
		s.log.Error("terrain journal append failed",
			zap.Int("map_id", s.mapID),
			zap.Int("cells", len(s.pending)),
			zap.Error(err))
		return
	}
	s.pending = s.pending[:0]
}
