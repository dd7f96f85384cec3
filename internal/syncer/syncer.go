// Package syncer runs the coverage cache synchronization: it computes which
// candidate keys have no cached answer yet, looks each one up under the rate
// limit, and records the results and the run's progress.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coveragesync/internal/keys"
	"coveragesync/internal/ledger"
	"coveragesync/internal/lookup"
	"coveragesync/internal/models"
)

// ErrPrecondition marks failures detected before the loop starts. No job is
// created when Run returns it.
var ErrPrecondition = errors.New("sync precondition failed")

const (
	DefaultBatchSize     = 500
	DefaultProgressEvery = 50

	finalizeTimeout = 10 * time.Second
)

// State is the orchestrator's position in a run.
type State int

const (
	StateInit State = iota
	StateGapComputed
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateGapComputed:
		return "gap_computed"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KeyReader returns the keys that already have a cached answer.
type KeyReader interface {
	ExistingKeys(ctx context.Context) (keys.Set, error)
}

// RecordWriter persists one lookup result.
type RecordWriter interface {
	Write(ctx context.Context, r *models.CoverageRecord) error
}

// Looker resolves one key.
type Looker interface {
	Lookup(ctx context.Context, key string) lookup.Outcome
}

// Metrics receives per-key counters. *metrics.Recorder implements it.
type Metrics interface {
	KeyProcessed(outcome string)
	PersistenceError(target string)
	SetRemaining(jobType string, n int)
}

// Deps are the collaborators of a Syncer.
type Deps struct {
	Store   Pinger
	Reader  KeyReader
	Writer  RecordWriter
	Lookup  Looker
	Ledger  *ledger.Ledger
	Metrics Metrics // optional
}

// Options tune a run.
type Options struct {
	JobType       string
	BatchSize     int
	ProgressEvery int
	Limit         int // process at most this many gap keys, 0 for all
}

// Report summarizes a finished run.
type Report struct {
	JobID       uuid.UUID
	JobType     string
	State       State
	Candidates  int
	Cached      int
	Interrupted bool
	Duration    time.Duration
	Stats
}

// Syncer is the batch orchestrator.
type Syncer struct {
	source keys.Source
	deps   Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a syncer for one candidate source.
func New(source keys.Source, deps Deps, opts Options, logger *zap.Logger) *Syncer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.JobType == "" {
		opts.JobType = source.Name()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.New(nil, logger)
	}
	return &Syncer{
		source: source,
		deps:   deps,
		opts:   opts,
		logger: logger.With(zap.String("job_type", opts.JobType)),
		now:    time.Now,
	}
}

// Run executes one synchronization pass. Per-key failures never surface as an
// error; only precondition failures do. When ctx is canceled mid-run the
// in-flight key is abandoned, the job is finalized failed and Run returns the
// report with Interrupted set and a nil error.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	start := s.now()
	rep := Report{JobType: s.opts.JobType, State: StateInit}

	gap, err := s.computeGap(ctx, &rep)
	if err != nil {
		rep.State = StateFailed
		rep.Duration = s.now().Sub(start)
		return rep, err
	}
	rep.State = StateGapComputed

	if len(gap) == 0 {
		rep.State = StateCompleted
		rep.Duration = s.now().Sub(start)
		s.logger.Info("cache is up to date, nothing to sync",
			zap.Int("candidates", rep.Candidates),
			zap.Int("cached", rep.Cached),
		)
		return rep, nil
	}

	stats := &rep.Stats
	stats.TotalKeys = len(gap)

	s.deps.Ledger.WarnIfRunning(ctx, s.opts.JobType)
	rep.JobID, err = s.deps.Ledger.Create(ctx, s.opts.JobType, stats.TotalKeys)
	if err != nil {
		s.ledgerFailed(stats)
	}
	rep.State = StateRunning
	s.setRemaining(stats)

	batches := keys.Batches(gap, s.opts.BatchSize)
	s.logger.Info("starting sync",
		zap.Int("keys", stats.TotalKeys),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", s.opts.BatchSize),
	)

loop:
	for i, batch := range batches {
		s.logger.Debug("processing batch",
			zap.Int("batch", i+1),
			zap.Int("of", len(batches)),
			zap.Int("size", len(batch)),
		)
		for _, key := range batch {
			if ctx.Err() != nil {
				rep.Interrupted = true
				break loop
			}
			if !s.processKey(ctx, key, stats) {
				rep.Interrupted = true
				break loop
			}
			if stats.Processed%s.opts.ProgressEvery == 0 && stats.Processed < stats.TotalKeys {
				s.reportProgress(ctx, rep.JobID, stats, s.now().Sub(start))
			}
		}
	}

	status := models.JobStatusCompleted
	rep.State = StateCompleted
	if rep.Interrupted {
		status = models.JobStatusFailed
		rep.State = StateFailed
	}

	// ctx may already be canceled; the final ledger write still has to land.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := s.deps.Ledger.Finalize(fctx, rep.JobID, status, stats.Progress()); err != nil && !errors.Is(err, ledger.ErrNoJob) {
		s.ledgerFailed(stats)
	}

	rep.Duration = s.now().Sub(start)
	s.summarize(rep)
	return rep, nil
}

func (s *Syncer) computeGap(ctx context.Context, rep *Report) ([]string, error) {
	if err := s.deps.Store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: store unreachable: %w", ErrPrecondition, err)
	}

	candidates := s.source.Keys()
	rep.Candidates = len(candidates)

	existing, err := s.deps.Reader.ExistingKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	gap := keys.Gap(candidates, existing)
	rep.Cached = len(candidates) - len(gap)

	s.logger.Info("gap computed",
		zap.Int("candidates", len(candidates)),
		zap.Int("cached", rep.Cached),
		zap.Int("missing", len(gap)),
	)
	if len(gap) > 0 {
		breakdown := keys.PrefixBreakdown(gap)
		fields := make([]zap.Field, 0, len(breakdown))
		for digit, n := range breakdown {
			if n > 0 {
				fields = append(fields, zap.Int(fmt.Sprintf("%dxxxx", digit), n))
			}
		}
		s.logger.Info("missing keys by prefix", fields...)
	}

	if s.opts.Limit > 0 && len(gap) > s.opts.Limit {
		s.logger.Info("limiting run", zap.Int("limit", s.opts.Limit), zap.Int("skipped", len(gap)-s.opts.Limit))
		gap = gap[:s.opts.Limit]
	}
	return gap, nil
}

// processKey looks up and records one key. It returns false when the lookup was
// abandoned because ctx ended.
func (s *Syncer) processKey(ctx context.Context, key string, stats *Stats) bool {
	out := s.deps.Lookup.Lookup(ctx, key)
	if out.Canceled {
		stats.APICalls += out.Attempts
		s.logger.Info("lookup abandoned", zap.String("key", key), zap.Int("attempts", out.Attempts))
		return false
	}

	stats.recordOutcome(out)
	s.logOutcome(out)
	if s.deps.Metrics != nil {
		s.deps.Metrics.KeyProcessed(out.Kind)
	}

	// The answer is in hand; persist it even if ctx was canceled meanwhile.
	if err := s.deps.Writer.Write(context.WithoutCancel(ctx), out.Record(s.now().UTC())); err != nil {
		stats.recordWriteError()
		if s.deps.Metrics != nil {
			s.deps.Metrics.PersistenceError("cache")
		}
	}
	s.setRemaining(stats)
	return true
}

func (s *Syncer) logOutcome(out lookup.Outcome) {
	switch {
	case out.Failed():
		fields := []zap.Field{
			zap.String("key", out.Key),
			zap.String("outcome", out.Kind),
			zap.Int("attempts", out.Attempts),
			zap.Error(out.Err),
		}
		if out.Status != nil {
			fields = append(fields, zap.Int("status", *out.Status))
		}
		s.logger.Warn("lookup failed", fields...)
	case out.HasCoverage:
		s.logger.Debug("key covered", zap.String("key", out.Key), zap.Int("items", out.Items))
	default:
		s.logger.Debug("key not covered", zap.String("key", out.Key))
	}
}

func (s *Syncer) reportProgress(ctx context.Context, jobID uuid.UUID, stats *Stats, elapsed time.Duration) {
	s.logger.Info("sync progress",
		zap.Int("processed", stats.Processed),
		zap.Int("total", stats.TotalKeys),
		zap.String("percent", fmt.Sprintf("%.1f", stats.Percent())),
		zap.String("keys_per_sec", fmt.Sprintf("%.2f", stats.Rate(elapsed))),
		zap.Duration("eta", stats.ETA(elapsed).Round(time.Second)),
		zap.Int("covered", stats.Covered),
		zap.Int("errors", stats.Errors),
	)
	if err := s.deps.Ledger.Update(ctx, jobID, stats.Progress()); err != nil && !errors.Is(err, ledger.ErrNoJob) {
		s.ledgerFailed(stats)
	}
}

func (s *Syncer) ledgerFailed(stats *Stats) {
	stats.LedgerErrors++
	if s.deps.Metrics != nil {
		s.deps.Metrics.PersistenceError("ledger")
	}
}

func (s *Syncer) setRemaining(stats *Stats) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetRemaining(s.opts.JobType, stats.TotalKeys-stats.Processed)
	}
}

func (s *Syncer) summarize(rep Report) {
	msg := "sync completed"
	if rep.Interrupted {
		msg = "sync interrupted"
	}
	s.logger.Info(msg,
		zap.Stringer("job_id", rep.JobID),
		zap.Int("processed", rep.Processed),
		zap.Int("total", rep.TotalKeys),
		zap.Int("with_coverage", rep.Covered),
		zap.Int("without_coverage", rep.NotCovered),
		zap.Int("errors", rep.Errors),
		zap.Int("api_calls", rep.APICalls),
		zap.Int("ledger_errors", rep.LedgerErrors),
		zap.Duration("duration", rep.Duration.Round(time.Millisecond)),
		zap.String("coverage_rate", fmt.Sprintf("%.1f%%", rep.CoverageRate())),
	)
}
