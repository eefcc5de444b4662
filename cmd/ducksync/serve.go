package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/danjsiegel/ducksync/internal/api"
	"github.com/danjsiegel/ducksync/internal/app"
	"github.com/danjsiegel/ducksync/internal/config"
	"github.com/danjsiegel/ducksync/internal/db/repository"
	"github.com/danjsiegel/ducksync/internal/middleware"
)

// bootstrap loads config, builds the logger, opens both databases, and wires
// the application. Shared by serve and the one-shot admin commands.
func bootstrap(ctx context.Context, envFile string) (*app.App, *config.Config, *slog.Logger, func(), error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	metaDB, err := repository.Open(cfg.MetaDBPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open metastore: %w", err)
	}

	// The cache plane always starts in-memory; persistent storage is an
	// ATTACH done by the app wiring when configured.
	duckDB, err := sql.Open("duckdb", "")
	if err != nil {
		metaDB.Close() //nolint:errcheck
		return nil, nil, nil, nil, fmt.Errorf("open duckdb: %w", err)
	}

	a, err := app.New(ctx, app.Deps{Cfg: cfg, MetaDB: metaDB, DuckDB: duckDB, Logger: logger})
	if err != nil {
		metaDB.Close() //nolint:errcheck
		duckDB.Close() //nolint:errcheck
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		_ = a.Remote.Close()
		duckDB.Close() //nolint:errcheck
		metaDB.Close() //nolint:errcheck
	}
	return a, cfg, logger, cleanup, nil
}

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, cfg, logger, cleanup, err := bootstrap(ctx, *envFile)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Scheduler.Start(); err != nil {
				return fmt.Errorf("start cleanup scheduler: %w", err)
			}
			defer a.Scheduler.Stop()

			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.RequestLogger(logger.With("component", "http")))
			r.Use(chimw.Recoverer)
			r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimitRPS,
				Burst:             cfg.RateLimitBurst,
			}))

			r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})

			handler := api.NewHandler(a.Store, a.Refresher, a.Engine, a.Cleaner)
			r.Route("/v1", handler.Routes)

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http api listening", "addr", cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				logger.Info("shutting down", "signal", sig.String())
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}
