// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coveragesync/internal/db"
	"coveragesync/internal/models"
)

// TestDB creates a test database connection and returns a cleanup function.
// The test is skipped unless TEST_DATABASE_URL is set.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	cleanupTestData(ctx, database.Pool)

	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	pool.Exec(ctx, "DELETE FROM sync_jobs")
	pool.Exec(ctx, "DELETE FROM coverage_cache")
}

// SeedCoverage inserts cached answers for the given keys.
func SeedCoverage(t *testing.T, database *db.DB, covered bool, keys ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, k := range keys {
		rec := &models.CoverageRecord{Key: k, IsValid: true, HasCoverage: covered, LastCheckedAt: now, LastAPICheckAt: now}
		if err := database.UpsertCoverage(ctx, rec); err != nil {
			t.Fatalf("failed to seed coverage for %s: %v", k, err)
		}
	}
}
