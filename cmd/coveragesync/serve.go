package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/storage/redis/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coveragesync/internal/config"
	"coveragesync/internal/db"
	"coveragesync/internal/handlers/api"
	"coveragesync/internal/jobs"
	"coveragesync/internal/metrics"
	"coveragesync/internal/server"
	"coveragesync/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr     string
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cached coverage answers and job ledger over HTTP",
		Long: `Starts the read-only HTTP API (coverage lookups from the cache, job ledger,
Prometheus metrics and a dashboard). With --schedule (or SYNC_SCHEDULE) sync
runs are also triggered on a cron schedule; a tick is skipped while the
previous run is still going.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.ServerAddr = addr
			}
			if cmd.Flags().Changed("schedule") {
				c.cfg.Schedule = schedule
			}
			return runServe(cmd.Context(), c.cfg, c.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (SERVER_ADDR, default :8080)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression for scheduled sync runs (SYNC_SCHEDULE)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", syncer.ErrPrecondition, err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("migrations completed")

	recorder := metrics.Init(database, logger.Named("metrics"))

	var cache api.Cache
	if cfg.RedisURL != "" {
		store := redis.New(redis.Config{URL: cfg.RedisURL})
		defer store.Close()
		cache = store
		logger.Info("read-through cache enabled")
	}

	srv, err := server.New(cfg, logger.Named("http"))
	if err != nil {
		return err
	}
	srv.RegisterRoutes(database, cache)

	var scheduler *jobs.SyncScheduler
	if cfg.Schedule != "" {
		src, err := cfg.Source()
		if err != nil {
			return err
		}
		scheduler, err = jobs.NewSyncScheduler(cfg.Schedule, func(ctx context.Context) error {
			_, err := newSyncer(cfg, src, database, logger, recorder).Run(ctx)
			return err
		}, logger.Named("scheduler"))
		if err != nil {
			return &config.FatalError{Errs: []error{err}}
		}
		go scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Wait()
	}
	logger.Info("server exited")
	return nil
}
