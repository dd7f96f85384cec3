package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coveragesync/internal/cache"
	"coveragesync/internal/config"
	"coveragesync/internal/db"
	"coveragesync/internal/keys"
	"coveragesync/internal/ledger"
	"coveragesync/internal/lookup"
	"coveragesync/internal/metrics"
	"coveragesync/internal/ratelimit"
	"coveragesync/internal/retry"
	"coveragesync/internal/syncer"
)

// syncFlags override the environment for one run.
type syncFlags struct {
	baseURL     string
	mode        string
	rate        float64
	aggressive  bool
	batchSize   int
	statusOnly  bool
	limit       int
	timeoutMS   int
	maxAttempts int
	retryBaseMS int
	keysFile    string
}

func (f *syncFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.baseURL, "base-url", "", "coverage API base URL (COVERAGE_API_BASE_URL)")
	fs.StringVar(&f.mode, "mode", "", "candidate source: exhaustive, curated or ranges (SYNC_MODE)")
	fs.Float64Var(&f.rate, "rate", 0, "maximum requests per second (SYNC_RATE, default 10)")
	fs.BoolVar(&f.aggressive, "aggressive", false, fmt.Sprintf("raise the rate to %.0f req/s", config.AggressiveRate))
	fs.IntVar(&f.batchSize, "batch-size", 0, "keys per batch (SYNC_BATCH_SIZE, default 500)")
	fs.BoolVar(&f.statusOnly, "status-only", false, "treat any 200 as covered without reading the body")
	fs.IntVar(&f.limit, "limit", 0, "process at most N missing keys")
	fs.IntVar(&f.timeoutMS, "timeout-ms", 0, "per-request timeout in milliseconds (SYNC_REQUEST_TIMEOUT_MS)")
	fs.IntVar(&f.maxAttempts, "max-attempts", 0, "attempts per key including the first (SYNC_MAX_ATTEMPTS)")
	fs.IntVar(&f.retryBaseMS, "retry-base-ms", 0, "delay before the first retry in milliseconds (SYNC_RETRY_BASE_MS)")
	fs.StringVar(&f.keysFile, "keys-file", "", "YAML key-source file (KEYS_FILE)")
}

// apply copies every flag the user set onto cfg.
func (f *syncFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("base-url") {
		cfg.APIBaseURL = f.baseURL
	}
	if fs.Changed("mode") {
		cfg.Mode = f.mode
	}
	if fs.Changed("rate") {
		cfg.Rate = f.rate
	}
	if fs.Changed("aggressive") {
		cfg.Aggressive = f.aggressive
	}
	if fs.Changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if fs.Changed("status-only") {
		cfg.StatusOnly = f.statusOnly
	}
	if fs.Changed("limit") {
		cfg.Limit = f.limit
	}
	if fs.Changed("timeout-ms") {
		cfg.RequestTimeout = millis(f.timeoutMS)
	}
	if fs.Changed("max-attempts") {
		cfg.MaxAttempts = f.maxAttempts
	}
	if fs.Changed("retry-base-ms") {
		cfg.RetryBase = millis(f.retryBaseMS)
	}
	if fs.Changed("keys-file") {
		cfg.KeysFile = f.keysFile
	}
}

func newSyncCmd(c *cli) *cobra.Command {
	flags := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Look up every candidate key that has no cached answer yet",
		Long: `Computes the candidate keys for the configured source, skips the ones already
in the coverage cache, and queries the coverage API for the rest under the
configured rate limit. Progress is recorded in the sync_jobs ledger.

Interrupting the run (Ctrl-C) abandons the current key and marks the job
failed; the next run resumes with exactly the keys that are still missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, c.cfg)
			_, err := runSync(cmd.Context(), c.cfg, c.logger)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// runSync validates the configuration, connects to the store and performs one run.
func runSync(ctx context.Context, cfg *config.Config, logger *zap.Logger) (syncer.Report, error) {
	if err := cfg.Validate(); err != nil {
		return syncer.Report{}, err
	}
	src, err := cfg.Source()
	if err != nil {
		return syncer.Report{}, err
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return syncer.Report{}, fmt.Errorf("%w: %w", syncer.ErrPrecondition, err)
	}
	defer database.Close()

	return newSyncer(cfg, src, database, logger, nil).Run(ctx)
}

// newSyncer wires the orchestrator to the database and the coverage API.
// recorder may be nil.
func newSyncer(cfg *config.Config, src keys.Source, database *db.DB, logger *zap.Logger, recorder *metrics.Recorder) *syncer.Syncer {
	limiter := ratelimit.New(cfg.EffectiveRate())
	retrier := retry.NewController(cfg.RetryPolicy(), logger.Named("retry"))

	var opts []lookup.Option
	if recorder != nil {
		opts = append(opts, lookup.WithObserver(recorder))
	}
	client := lookup.NewClient(cfg.LookupConfig(), limiter, retrier, logger.Named("lookup"), opts...)

	deps := syncer.Deps{
		Store:  database,
		Reader: cache.NewReader(database, cache.DefaultPageSize, logger.Named("cache")),
		Writer: cache.NewWriter(database, logger.Named("cache")),
		Lookup: client,
		Ledger: ledger.New(database, logger.Named("ledger")),
	}
	if recorder != nil {
		deps.Metrics = recorder
	}

	logger.Info("sync configured",
		zap.String("mode", src.Name()),
		zap.String("job_type", cfg.JobType()),
		zap.Float64("rate", limiter.Rate()),
		zap.Duration("interval", limiter.Interval()),
		zap.Int("max_attempts", cfg.MaxAttempts),
		zap.Duration("timeout", cfg.RequestTimeout),
	)

	return syncer.New(src, deps, syncer.Options{
		JobType:       cfg.JobType(),
		BatchSize:     cfg.BatchSize,
		ProgressEvery: cfg.ProgressEvery,
		Limit:         cfg.Limit,
	}, logger.Named("sync"))
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
