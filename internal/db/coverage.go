package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"coveragesync/internal/models"
)

// coverageColumns is the standard column list for coverage cache queries.
const coverageColumns = `key, is_valid, has_coverage, last_updated, last_api_check, api_response_status`

// scanCoverage scans a row into a CoverageRecord.
func scanCoverage(row pgx.Row) (*models.CoverageRecord, error) {
	var r models.CoverageRecord
	err := row.Scan(
		&r.Key,
		&r.IsValid,
		&r.HasCoverage,
		&r.LastCheckedAt,
		&r.LastAPICheckAt,
		&r.LastResponseStatus,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCoverageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertCoverage writes the record for its key, replacing any previous answer.
func (d *DB) UpsertCoverage(ctx context.Context, r *models.CoverageRecord) error {
	if !r.Consistent() {
		return ErrInconsistentRecord
	}

	_, err := d.Pool.Exec(ctx, `
		INSERT INTO coverage_cache (`+coverageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			is_valid = EXCLUDED.is_valid,
			has_coverage = EXCLUDED.has_coverage,
			last_updated = EXCLUDED.last_updated,
			last_api_check = EXCLUDED.last_api_check,
			api_response_status = EXCLUDED.api_response_status
	`, r.Key, r.IsValid, r.HasCoverage, r.LastCheckedAt, r.LastAPICheckAt, r.LastResponseStatus)
	return err
}

// GetCoverage returns the cached record for a key.
func (d *DB) GetCoverage(ctx context.Context, key string) (*models.CoverageRecord, error) {
	row := d.Pool.QueryRow(ctx, `SELECT `+coverageColumns+` FROM coverage_cache WHERE key = $1`, key)
	return scanCoverage(row)
}

// ListCachedKeys returns up to limit keys ordered by key, starting after the given key.
// Pass an empty string to start from the beginning.
func (d *DB) ListCachedKeys(ctx context.Context, after string, limit int) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT key FROM coverage_cache
		WHERE key > $1
		ORDER BY key
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0, limit)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetCoverageStats returns row counts over the whole cache.
func (d *DB) GetCoverageStats(ctx context.Context) (models.CoverageStats, error) {
	var stats models.CoverageStats
	err := d.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_valid),
			COUNT(*) FILTER (WHERE has_coverage)
		FROM coverage_cache
	`).Scan(&stats.Total, &stats.Valid, &stats.Covered)
	return stats, err
}
