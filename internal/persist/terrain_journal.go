package persist

import (
	"context"
	"fmt"

	"github.com/l1jgo/navcore/internal/world"
)

// JournalEntry is one persisted terrain edit.
type JournalEntry struct {
	ID     int64
	Change world.CellChange
}

// TerrainJournal is an append-only log of terrain edits per map. Replaying it
// over the stored snapshot reproduces the live grid.
type TerrainJournal struct {
	db *DB
}

func NewTerrainJournal(db *DB) *TerrainJournal {
	return &TerrainJournal{db: db}
}

// Append writes a batch of edits in a single transaction.
// If it fails nothing from the batch is stored.
func (j *TerrainJournal) Append(ctx context.Context, mapID int, changes []world.CellChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := j.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range changes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO terrain_journal (map_id, x, y, class) VALUES ($1, $2, $3, $4)`,
			mapID, c.Cell.X, c.Cell.Y, int16(c.Class),
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Since returns the edits of mapID with id greater than after, oldest first.
func (j *TerrainJournal) Since(ctx context.Context, mapID int, after int64) ([]JournalEntry, error) {
	rows, err := j.db.Pool.Query(ctx,
		`SELECT id, x, y, class FROM terrain_journal
		 WHERE map_id = $1 AND id > $2
		 ORDER BY id`, mapID, after,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []JournalEntry
	for rows.Next() {
		var (
			e     JournalEntry
			class int16
		)
		if err := rows.Scan(&e.ID, &e.Change.Cell.X, &e.Change.Cell.Y, &class); err != nil {
			return nil, err
		}
		e.Change.Class = uint8(class)
		result = append(result, e)
	}
	return result, rows.Err()
}

// Truncate drops journal rows of mapID up to and including through, typically
// after the map snapshot has been re-saved.
func (j *TerrainJournal) Truncate(ctx context.Context, mapID int, through int64) error {
	_, err := j.db.Pool.Exec(ctx,
		`DELETE FROM terrain_journal WHERE map_id = $1 AND id <= $2`, mapID, through,
	)
	return err
}

// Replay applies entries to g in order, recording them in cs when non-nil.
// It returns the id of the last entry applied, or 0.
func Replay(g *world.Grid, entries []JournalEntry, cs *world.ChangeSet) int64 {
	var last int64
	for _, e := range entries {
		g.SetCell(e.Change.Cell, e.Change.Class, cs)
		last = e.ID
	}
	return last
}
