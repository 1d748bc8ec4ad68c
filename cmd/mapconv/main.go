// mapconv converts map sources into grid snapshots and imports them into PostgreSQL.
//
// Usage:
//
//	go run ./cmd/mapconv <command> [flags]
//
// Commands: snapshot, generate, import, verify
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/l1jgo/navcore/internal/config"
	"github.com/l1jgo/navcore/internal/data"
	"github.com/l1jgo/navcore/internal/persist"
	"github.com/l1jgo/navcore/internal/world"
	"github.com/l1jgo/navcore/internal/worldgen"
	"go.uber.org/zap"
)

const snapshotExt = ".navg"

func printUsage() {
	fmt.Println("Usage: mapconv <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  snapshot  Convert CSV tile maps listed in map_list.yaml -> <outdir>/<map_id>.navg")
	fmt.Println("  generate  Generate a map from noise -> <outdir>/<map_id>.navg")
	fmt.Println("  import    Load <outdir>/*.navg into the maps table (needs -config)")
	fmt.Println("  verify    Decode every snapshot in <outdir> and check its digest")
}

type options struct {
	mapList string
	tileDir string
	terrain string
	outDir  string
	config  string
	mapID   int
	width   int
	height  int
	cell    float64
	seed    uint
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	var o options
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&o.mapList, "list", filepath.Join("data", "yaml", "map_list.yaml"), "map list yaml")
	fs.StringVar(&o.tileDir, "tiles", "map", "CSV tile directory")
	fs.StringVar(&o.terrain, "terrain", "", "terrain table yaml (default: built-in classes)")
	fs.StringVar(&o.outDir, "outdir", filepath.Join("data", "snapshots"), "snapshot directory")
	fs.StringVar(&o.config, "config", filepath.Join("config", "navcore.toml"), "navcore config, for [database]")
	fs.IntVar(&o.mapID, "map", 0, "only this map id (0 = all)")
	fs.IntVar(&o.width, "width", 256, "generate: width in cells")
	fs.IntVar(&o.height, "height", 256, "generate: height in cells")
	fs.Float64Var(&o.cell, "cellsize", 32, "generate: cell size in world units")
	fs.UintVar(&o.seed, "seed", 1, "generate: noise seed")
	_ = fs.Parse(os.Args[2:])

	commands := map[string]func(options) error{
		"snapshot": convertTiles,
		"generate": generateMap,
		"import":   importSnapshots,
		"verify":   verifySnapshots,
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err := fn(o); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Done!")
}

func loadTerrain(path string) (*world.TerrainTable, error) {
	if path == "" {
		return world.DefaultTerrainTable(), nil
	}
	return data.LoadTerrainTable(path)
}

func snapshotPath(outDir string, mapID int) string {
	return filepath.Join(outDir, strconv.Itoa(mapID)+snapshotExt)
}

func convertTiles(o options) error {
	terrain, err := loadTerrain(o.terrain)
	if err != nil {
		return err
	}
	list, err := data.LoadMapList(o.mapList)
	if err != nil {
		return err
	}
	converted := 0
	for _, info := range list.All() {
		if o.mapID != 0 && info.MapID != o.mapID {
			continue
		}
		g, err := data.LoadGrid(info, o.tileDir, terrain)
		if err != nil {
			return fmt.Errorf("map %d: %w", info.MapID, err)
		}
		out := snapshotPath(o.outDir, info.MapID)
		if err := persist.SaveGridFile(out, g); err != nil {
			return err
		}
		fmt.Printf("  %-6d %-24s %4dx%-4d -> %s\n", info.MapID, info.Name, g.Width(), g.Height(), out)
		converted++
	}
	if converted == 0 {
		return fmt.Errorf("no maps converted from %s", o.mapList)
	}
	return nil
}

func generateMap(o options) error {
	terrain, err := loadTerrain(o.terrain)
	if err != nil {
		return err
	}
	g, err := worldgen.Generate(worldgen.Params{
		Width:    int32(o.width),
		Height:   int32(o.height),
		CellSize: o.cell,
		Seed:     uint32(o.seed),
	}, terrain)
	if err != nil {
		return err
	}
	id := o.mapID
	if id == 0 {
		id = 1
	}
	out := snapshotPath(o.outDir, id)
	if err := persist.SaveGridFile(out, g); err != nil {
		return err
	}
	fmt.Printf("  generated %dx%d (seed %d) -> %s\n", g.Width(), g.Height(), o.seed, out)
	return nil
}

// listSnapshots returns map id -> path for every snapshot in dir, sorted by id.
func listSnapshots(dir string, only int) ([]int, map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	paths := make(map[int]string)
	var ids []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, snapshotExt))
		if err != nil || (only != 0 && id != only) {
			continue
		}
		paths[id] = filepath.Join(dir, name)
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, paths, nil
}

func verifySnapshots(o options) error {
	terrain, err := loadTerrain(o.terrain)
	if err != nil {
		return err
	}
	ids, paths, err := listSnapshots(o.outDir, o.mapID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		g, err := persist.LoadGridFile(paths[id], terrain)
		if err != nil {
			return err
		}
		fmt.Printf("  %-6d ok  %4dx%-4d\n", id, g.Width(), g.Height())
	}
	return nil
}

func importSnapshots(o options) error {
	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("%s: database.enabled is false", o.config)
	}
	terrain, err := loadTerrain(o.terrain)
	if err != nil {
		return err
	}
	var names map[int]string
	if list, err := data.LoadMapList(o.mapList); err == nil {
		names = make(map[int]string, list.Count())
		for _, info := range list.All() {
			names[info.MapID] = info.Name
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := persist.RunMigrations(ctx, db.Pool, nil); err != nil {
		return err
	}
	repo := persist.NewMapRepo(db)

	ids, paths, err := listSnapshots(o.outDir, o.mapID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		g, err := persist.LoadGridFile(paths[id], terrain)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, id, names[id], g); err != nil {
			return err
		}
		fmt.Printf("  %-6d imported %s\n", id, paths[id])
	}
	return nil
}
