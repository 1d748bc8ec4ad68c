package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/navcore/internal/world"
)

// ErrMapNotFound is returned by MapRepo.Load for an unknown map id.
var ErrMapNotFound = errors.New("map not found")

// MapRepo stores whole grids as snapshot blobs.
type MapRepo struct {
	db *DB
}

func NewMapRepo(db *DB) *MapRepo {
	return &MapRepo{db: db}
}

// Save inserts or replaces the map row for mapID.
func (r *MapRepo) Save(ctx context.Context, mapID int, name string, g *world.Grid) error {
	var buf bytes.Buffer
	if err := EncodeGrid(&buf, g); err != nil {
		return fmt.Errorf("encode map %d: %w", mapID, err)
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO maps (map_id, name, width, height, cell_size, snapshot, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (map_id) DO UPDATE SET
		   name = EXCLUDED.name, width = EXCLUDED.width, height = EXCLUDED.height,
		   cell_size = EXCLUDED.cell_size, snapshot = EXCLUDED.snapshot, updated_at = now()`,
		mapID, name, g.Width(), g.Height(), g.CellSize(), buf.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("save map %d: %w", mapID, err)
	}
	return nil
}

// Load decodes the stored snapshot of mapID against terrain.
func (r *MapRepo) Load(ctx context.Context, mapID int, terrain *world.TerrainTable) (*world.Grid, error) {
	var blob []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT snapshot FROM maps WHERE map_id = $1`, mapID,
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("map %d: %w", mapID, ErrMapNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load map %d: %w", mapID, err)
	}
	g, err := DecodeGrid(bytes.NewReader(blob), terrain)
	if err != nil {
		return nil, fmt.Errorf("decode map %d: %w", mapID, err)
	}
	return g, nil
}

// List returns every stored map id in ascending order.
func (r *MapRepo) List(ctx context.Context) ([]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT map_id FROM maps ORDER BY map_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
