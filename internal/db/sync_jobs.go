package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"coveragesync/internal/models"
)

// syncJobColumns is the standard column list for sync job queries.
const syncJobColumns = `id, job_type, status, zip_codes_total, zip_codes_processed,
	errors_encountered, api_calls_made, started_at, completed_at`

// scanSyncJob scans a row into a SyncJob struct.
func scanSyncJob(row pgx.Row) (*models.SyncJob, error) {
	var job models.SyncJob
	err := row.Scan(
		&job.ID,
		&job.JobType,
		&job.Status,
		&job.TotalKeys,
		&job.ProcessedKeys,
		&job.ErrorsCount,
		&job.APICallsMade,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateSyncJob inserts a new running job. ID and StartedAt are filled in when zero.
func (d *DB) CreateSyncJob(ctx context.Context, job *models.SyncJob) error {
	if !models.ValidJobType(job.JobType) {
		return ErrInvalidJobType
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.JobStatusRunning
	}

	_, err := d.Pool.Exec(ctx, `
		INSERT INTO sync_jobs (id, job_type, status, zip_codes_total, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, job.ID, job.JobType, job.Status, job.TotalKeys, job.StartedAt)
	return err
}

// UpdateSyncJobProgress stores interim counters for a running job.
func (d *DB) UpdateSyncJobProgress(ctx context.Context, id uuid.UUID, p models.SyncJobProgress) error {
	tag, err := d.Pool.Exec(ctx, `
		UPDATE sync_jobs
		SET zip_codes_processed = $2, errors_encountered = $3, api_calls_made = $4
		WHERE id = $1 AND status = 'running'
	`, id, p.ProcessedKeys, p.ErrorsCount, p.APICallsMade)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return d.missingOrNotRunning(ctx, id)
	}
	return nil
}

// FinalizeSyncJob moves a running job to a terminal status with its final counters.
func (d *DB) FinalizeSyncJob(ctx context.Context, id uuid.UUID, status string, completedAt time.Time, p models.SyncJobProgress) error {
	if !models.CanTransition(models.JobStatusRunning, status) {
		return ErrJobNotRunning
	}

	tag, err := d.Pool.Exec(ctx, `
		UPDATE sync_jobs
		SET status = $2, completed_at = $3,
			zip_codes_processed = $4, errors_encountered = $5, api_calls_made = $6
		WHERE id = $1 AND status = 'running'
	`, id, status, completedAt, p.ProcessedKeys, p.ErrorsCount, p.APICallsMade)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return d.missingOrNotRunning(ctx, id)
	}
	return nil
}

func (d *DB) missingOrNotRunning(ctx context.Context, id uuid.UUID) error {
	if _, err := d.GetSyncJob(ctx, id); err != nil {
		return err
	}
	return ErrJobNotRunning
}

// GetSyncJob returns a job by ID.
func (d *DB) GetSyncJob(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	row := d.Pool.QueryRow(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = $1`, id)
	return scanSyncJob(row)
}

// ListSyncJobs returns the most recent jobs, newest first.
func (d *DB) ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+syncJobColumns+` FROM sync_jobs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// FindRunningSyncJob returns the newest running job of a type, or ErrJobNotFound.
func (d *DB) FindRunningSyncJob(ctx context.Context, jobType string) (*models.SyncJob, error) {
	row := d.Pool.QueryRow(ctx, `
		SELECT `+syncJobColumns+` FROM sync_jobs
		WHERE job_type = $1 AND status = 'running'
		ORDER BY started_at DESC
		LIMIT 1
	`, jobType)
	return scanSyncJob(row)
}
