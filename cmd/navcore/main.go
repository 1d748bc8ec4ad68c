package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/navcore/internal/component"
	"github.com/l1jgo/navcore/internal/config"
	"github.com/l1jgo/navcore/internal/core/ecs"
	"github.com/l1jgo/navcore/internal/core/event"
	coresys "github.com/l1jgo/navcore/internal/core/system"
	"github.com/l1jgo/navcore/internal/data"
	"github.com/l1jgo/navcore/internal/pathcache"
	"github.com/l1jgo/navcore/internal/pathfind"
	"github.com/l1jgo/navcore/internal/persist"
	"github.com/l1jgo/navcore/internal/scheduler"
	"github.com/l1jgo/navcore/internal/scripting"
	"github.com/l1jgo/navcore/internal/system"
	"github.com/l1jgo/navcore/internal/world"
	"github.com/l1jgo/navcore/internal/worldgen"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              navcore  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m    clearance-aware grid path service      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1minstance:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main service logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/navcore.toml"
	if p := os.Getenv("NAVCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Optional PostgreSQL map store
	var (
		db      *persist.DB
		maps    *persist.MapRepo
		journal *persist.TerrainJournal
	)
	if cfg.Database.Enabled {
		printSection("database")
		db, err = persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		version, err := persist.RunMigrations(ctx, db.Pool, log)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		maps = persist.NewMapRepo(db)
		// Journal rows reference the stored map, so edits are only journaled
		// for maps served from the database.
		if cfg.Grid.Source == "database" {
			journal = persist.NewTerrainJournal(db)
		}
		printOK(fmt.Sprintf("connected, schema version %d", version))
	}

	// 4. Terrain and map
	printSection("map")
	terrain := world.DefaultTerrainTable()
	if cfg.Grid.TerrainFile != "" {
		terrain, err = data.LoadTerrainTable(cfg.Grid.TerrainFile)
		if err != nil {
			return fmt.Errorf("terrain table: %w", err)
		}
	}
	printStat("terrain classes", terrain.Len())

	grid, err := loadGrid(ctx, cfg, terrain, maps)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	if journal != nil {
		entries, err := journal.Since(ctx, cfg.Grid.MapID, 0)
		if err != nil {
			return fmt.Errorf("read terrain journal: %w", err)
		}
		persist.Replay(grid, entries, nil)
		printStat("journal edits replayed", len(entries))
	}
	printStat("grid width", int(grid.Width()))
	printStat("grid height", int(grid.Height()))
	printStat("passable cells", countPassable(grid))

	// 5. Pathfinding core
	printSection("pathfinding")
	pool := pathfind.NewPool(
		pathfind.WithWorkers(cfg.Scheduler.Workers),
		pathfind.WithSearchOptions(pathfind.WithMaxExpansions(cfg.Scheduler.MaxExpansions)),
	)
	defer func() {
		if err := pool.Close(); err != nil {
			log.Warn("worker pool close", zap.Error(err))
		}
	}()
	printStat("search workers", pool.Workers())

	ecsWorld := ecs.NewWorld()
	bus := event.NewBus()
	schedOpts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithCache(pathcache.New()),
		scheduler.WithOwnerCheck(ecsWorld.Alive),
		scheduler.WithMaintenanceInterval(cfg.Scheduler.MaintenanceInterval),
		scheduler.WithCacheTTL(cfg.Cache.TTL),
		scheduler.WithResultRetention(cfg.Scheduler.ResultRetention),
		scheduler.WithSlowTick(cfg.Scheduler.SlowTick),
	}
	var journalSys *system.JournalSystem
	if journal != nil {
		journalSys = system.NewJournalSystem(journal, cfg.Grid.MapID, log)
		schedOpts = append(schedOpts, scheduler.WithTerrainObserver(journalSys.Observe))
	}
	sched := scheduler.New(grid, pool, schedOpts...)

	// 6. Entities
	stores := system.NewNavStores(ecsWorld)
	pri, _ := scheduler.ParsePriority(cfg.Agents.Priority)
	spawned := system.SpawnWanderers(ecsWorld, stores, grid, uint64(cfg.Grid.Seed), cfg.Agents.Count,
		component.Agent{Size: cfg.Agents.Size, Speed: cfg.Agents.Speed, Priority: pri})
	printStat("agents", len(spawned))

	event.Subscribe(bus, func(e event.TerrainSynced) {
		log.Debug("terrain synced", zap.Int("cells", e.Cells), zap.Uint64("version", e.Version))
	})
	event.Subscribe(bus, func(e event.PathResolved) {
		if !e.Found {
			log.Debug("no route", zap.Uint64("entity", uint64(e.EntityID)), zap.Uint64("request", e.RequestID))
		}
	})

	// 7. Scripting
	var engine *scripting.Engine
	if cfg.Scripting.Dir != "" {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, sched, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		printOK(fmt.Sprintf("lua scripts loaded from %s", cfg.Scripting.Dir))
	}

	// 8. Create systems and register with runner
	clock := time.Now
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	if engine != nil && cfg.Scripting.Scenario != "" {
		if !engine.HasFunction(cfg.Scripting.Scenario) {
			log.Warn("scenario hook not defined", zap.String("hook", cfg.Scripting.Scenario))
		}
		runner.Register(system.NewScenarioSystem(engine, cfg.Scripting.Scenario, log))
	}
	runner.Register(system.NewTerrainSyncSystem(sched, bus))
	runner.Register(system.NewPathCollectSystem(sched))
	runner.Register(system.NewWanderSystem(grid, stores, uint64(cfg.Grid.Seed)+1))
	runner.Register(system.NewPathDispatchSystem(sched))
	runner.Register(system.NewNavigationSystem(sched, stores, bus))
	runner.Register(system.NewMovementSystem(stores, bus))
	runner.Register(system.NewPathMaintenanceSystem(sched, clock))
	runner.Register(system.NewCleanupSystem(ecsWorld, log))
	runner.Register(system.NewPathStatsSystem(sched, log, cfg.Server.StatsInterval))
	if journalSys != nil {
		runner.Register(journalSys)
	}

	// 9. Start tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s, systems: %d)", cfg.Server.TickRate, runner.Len()))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Server.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if journalSys != nil {
				sched.SyncTerrain()
				journalSys.Update(0)
			}
			st := sched.Cache().Stats()
			log.Info("final path cache",
				zap.Uint64("hits", st.PathHits),
				zap.Uint64("misses", st.PathMisses),
				zap.Uint64("invalidations", st.Invalidations),
				zap.Uint64("evictions", st.Evictions))
			return nil
		}
	}
}

// loadGrid builds the grid from the configured source.
func loadGrid(ctx context.Context, cfg *config.Config, terrain *world.TerrainTable, maps *persist.MapRepo) (*world.Grid, error) {
	switch cfg.Grid.Source {
	case "tiles":
		list, err := data.LoadMapList(cfg.Grid.MapList)
		if err != nil {
			return nil, err
		}
		info, ok := list.Get(cfg.Grid.MapID)
		if !ok {
			return nil, fmt.Errorf("map %d not in %s", cfg.Grid.MapID, cfg.Grid.MapList)
		}
		printOK(fmt.Sprintf("tiles: %s", info.Name))
		return data.LoadGrid(info, cfg.Grid.TileDir, terrain)
	case "snapshot":
		printOK(fmt.Sprintf("snapshot: %s", cfg.Grid.Snapshot))
		return persist.LoadGridFile(cfg.Grid.Snapshot, terrain)
	case "database":
		g, err := maps.Load(ctx, cfg.Grid.MapID, terrain)
		if errors.Is(err, persist.ErrMapNotFound) {
			return nil, fmt.Errorf("%w (import it with mapconv)", err)
		}
		printOK(fmt.Sprintf("database: map %d", cfg.Grid.MapID))
		return g, err
	case "generate":
		printOK(fmt.Sprintf("generated: seed %d", cfg.Grid.Seed))
		return worldgen.Generate(worldgen.Params{
			Width:       cfg.Grid.Width,
			Height:      cfg.Grid.Height,
			CellSize:    cfg.Grid.CellSize,
			Seed:        cfg.Grid.Seed,
			SpawnRadius: cfg.Grid.SpawnRadius,
		}, terrain)
	}
	return nil, fmt.Errorf("unknown grid source %q", cfg.Grid.Source)
}

func countPassable(g *world.Grid) int {
	n := 0
	t := g.Terrain()
	for _, c := range g.Cells() {
		if t.Passable(c) {
			n++
		}
	}
	return n
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
