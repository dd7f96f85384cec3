// Package ledger records the lifecycle of sync runs. All writes are best-effort:
// a failure is logged and returned but never stops the run it describes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coveragesync/internal/db"
	"coveragesync/internal/models"
)

// ErrNoJob is returned by Update and Finalize when Create did not produce a job.
var ErrNoJob = errors.New("no ledger entry for this run")

// Store persists sync jobs.
type Store interface {
	CreateSyncJob(ctx context.Context, job *models.SyncJob) error
	UpdateSyncJobProgress(ctx context.Context, id uuid.UUID, p models.SyncJobProgress) error
	FinalizeSyncJob(ctx context.Context, id uuid.UUID, status string, completedAt time.Time, p models.SyncJobProgress) error
	FindRunningSyncJob(ctx context.Context, jobType string) (*models.SyncJob, error)
}

// Ledger is the job ledger. A nil store turns every call into a no-op.
type Ledger struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a ledger.
func New(store Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create opens a running job for totalKeys keys. On failure it returns uuid.Nil
// with the error; later Update/Finalize calls for uuid.Nil are skipped.
func (l *Ledger) Create(ctx context.Context, jobType string, totalKeys int) (uuid.UUID, error) {
	if l.store == nil {
		return uuid.Nil, nil
	}

	job := &models.SyncJob{
		ID:        uuid.New(),
		JobType:   jobType,
		Status:    models.JobStatusRunning,
		TotalKeys: totalKeys,
		StartedAt: l.now(),
	}
	if err := l.store.CreateSyncJob(ctx, job); err != nil {
		l.logger.Error("failed to create sync job", zap.String("job_type", jobType), zap.Error(err))
		return uuid.Nil, fmt.Errorf("create sync job: %w", err)
	}

	l.logger.Info("sync job created",
		zap.Stringer("job_id", job.ID),
		zap.String("job_type", jobType),
		zap.Int("total_keys", totalKeys),
	)
	return job.ID, nil
}

// Update pushes interim counters.
func (l *Ledger) Update(ctx context.Context, id uuid.UUID, p models.SyncJobProgress) error {
	if l.store == nil {
		return nil
	}
	if id == uuid.Nil {
		return ErrNoJob
	}
	if err := l.store.UpdateSyncJobProgress(ctx, id, p); err != nil {
		l.logger.Error("failed to update sync job", zap.Stringer("job_id", id), zap.Error(err))
		return fmt.Errorf("update sync job: %w", err)
	}
	return nil
}

// Finalize moves the job to completed or failed with its final counters.
func (l *Ledger) Finalize(ctx context.Context, id uuid.UUID, status string, p models.SyncJobProgress) error {
	if l.store == nil {
		return nil
	}
	if id == uuid.Nil {
		return ErrNoJob
	}
	if err := l.store.FinalizeSyncJob(ctx, id, status, l.now(), p); err != nil {
		l.logger.Error("failed to finalize sync job",
			zap.Stringer("job_id", id),
			zap.String("status", status),
			zap.Error(err),
		)
		return fmt.Errorf("finalize sync job: %w", err)
	}
	return nil
}

// WarnIfRunning logs when another run of the same type is still marked running.
// Single-run-per-type is advisory only; the caller proceeds either way.
func (l *Ledger) WarnIfRunning(ctx context.Context, jobType string) *models.SyncJob {
	if l.store == nil {
		return nil
	}
	job, err := l.store.FindRunningSyncJob(ctx, jobType)
	if err != nil {
		if !errors.Is(err, db.ErrJobNotFound) {
			l.logger.Warn("could not check for running sync jobs", zap.Error(err))
		}
		return nil
	}
	l.logger.Warn("another sync job of this type is still marked running",
		zap.Stringer("job_id", job.ID),
		zap.String("job_type", jobType),
		zap.Time("started_at", job.StartedAt),
	)
	return job
}
