package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser accepts standard 5-field expressions and descriptors like @hourly or @every 6h.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// RunFunc performs one sync run.
type RunFunc func(ctx context.Context) error

// SyncScheduler triggers sync runs on a cron schedule inside the server process.
// At most one run is in flight; ticks that fire during a run are skipped.
type SyncScheduler struct {
	spec     string
	schedule cron.Schedule
	run      RunFunc
	logger   *zap.Logger

	running atomic.Bool
	skipped atomic.Int64
	wg      sync.WaitGroup
}

// NewSyncScheduler parses spec and creates a scheduler.
func NewSyncScheduler(spec string, run RunFunc, logger *zap.Logger) (*SyncScheduler, error) {
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{spec: spec, schedule: schedule, run: run, logger: logger}, nil
}

// Start blocks until ctx is done, triggering runs as the schedule fires. It
// waits for an in-flight run to return before it returns.
func (s *SyncScheduler) Start(ctx context.Context) {
	s.logger.Info("sync scheduler started", zap.String("schedule", s.spec))
	defer s.wg.Wait()

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sync scheduler stopped")
			return
		case <-timer.C:
			s.Trigger(ctx)
		}
	}
}

// Trigger starts a run in the background unless one is already in progress.
// It reports whether a run was started.
func (s *SyncScheduler) Trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("skipping scheduled sync, previous run still in progress")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		s.logger.Info("scheduled sync starting")
		if err := s.run(ctx); err != nil {
			s.logger.Error("scheduled sync failed", zap.Error(err))
		}
	}()
	return true
}

// Skipped returns how many ticks were skipped because a run was in progress.
func (s *SyncScheduler) Skipped() int64 {
	return s.skipped.Load()
}

// Wait blocks until the in-flight run, if any, returns.
func (s *SyncScheduler) Wait() {
	s.wg.Wait()
}
