// Package app provides application-level wiring and dependency injection
// for the cache service following hexagonal architecture.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/danjsiegel/ducksync/internal/config"
	internaldb "github.com/danjsiegel/ducksync/internal/db"
	"github.com/danjsiegel/ducksync/internal/db/repository"
	"github.com/danjsiegel/ducksync/internal/engine"
	"github.com/danjsiegel/ducksync/internal/refresh"
	"github.com/danjsiegel/ducksync/internal/router"
	"github.com/danjsiegel/ducksync/internal/scheduler"
	"github.com/danjsiegel/ducksync/internal/snowflake"
	"github.com/danjsiegel/ducksync/internal/storage"
)

// Deps holds the external dependencies that main() must provide.
// These are things the app package cannot (or should not) create itself:
// database handles, config, and the logger.
type Deps struct {
	Cfg    *config.Config
	MetaDB *sql.DB
	DuckDB *sql.DB
	Logger *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Store     *repository.Metastore
	Remote    *snowflake.Client
	Refresher *refresh.Orchestrator
	Router    *router.Router
	Engine    *engine.CacheEngine
	Cleaner   *storage.Cleaner
	Scheduler *scheduler.Scheduler
}

// New runs metastore migrations and wires all components from the provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	if err := internaldb.RunMigrations(deps.MetaDB); err != nil {
		return nil, fmt.Errorf("migrate metastore: %w", err)
	}

	store := repository.NewMetastore(deps.MetaDB)

	remote := snowflake.NewClient(cfg.SnowflakeDSNs, deps.Logger.With("component", "snowflake"))
	probe := snowflake.NewProbe(remote)

	if cfg.DuckLakePostgresDSN != "" {
		if err := storage.AttachDuckLake(ctx, deps.DuckDB, cfg.DuckLakePostgresDSN,
			cfg.DuckLakeDataPath, cfg.LocalCatalog); err != nil {
			return nil, fmt.Errorf("attach ducklake catalog: %w", err)
		}
	} else {
		// Without a configured path the cache plane is an in-memory catalog;
		// cached tables are lost on restart and rebuilt on first access.
		path := cfg.DuckDBPath
		if path == "" {
			path = ":memory:"
		}
		if err := storage.Attach(ctx, deps.DuckDB, path, cfg.LocalCatalog); err != nil {
			return nil, fmt.Errorf("attach cache database: %w", err)
		}
	}
	lake := storage.NewLake(deps.DuckDB, cfg.LocalCatalog, deps.Logger.With("component", "lake"))

	writer := storage.NewWriter(lake, remote)
	refresher := refresh.NewOrchestrator(store, probe, writer, cfg.LocalCatalog,
		deps.Logger.With("component", "refresh"))

	rt := router.NewRouter(store, refresher, cfg.LocalCatalog,
		deps.Logger.With("component", "router"))

	localExec := storage.NewLocalExecutor(deps.DuckDB)
	eng := engine.NewCacheEngine(rt, store, localExec, remote,
		deps.Logger.With("component", "engine"))

	cleaner := storage.NewCleaner(lake, deps.Logger.With("component", "cleanup"))
	sched := scheduler.New(cleaner, cfg.CleanupSchedule, deps.Logger.With("component", "scheduler"))

	return &App{
		Store:     store,
		Remote:    remote,
		Refresher: refresher,
		Router:    rt,
		Engine:    eng,
		Cleaner:   cleaner,
		Scheduler: sched,
	}, nil
}
