package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"coveragesync/internal/db"
	"coveragesync/internal/models"
)

type fakeStore struct {
	jobs      map[uuid.UUID]*models.SyncJob
	failWrite error
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[uuid.UUID]*models.SyncJob)}
}

func (s *fakeStore) CreateSyncJob(ctx context.Context, job *models.SyncJob) error {
	if s.failWrite != nil {
		return s.failWrite
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateSyncJobProgress(ctx context.Context, id uuid.UUID, p models.SyncJobProgress) error {
	if s.failWrite != nil {
		return s.failWrite
	}
	job, ok := s.jobs[id]
	if !ok {
		return db.ErrJobNotFound
	}
	job.ProcessedKeys, job.ErrorsCount, job.APICallsMade = p.ProcessedKeys, p.ErrorsCount, p.APICallsMade
	return nil
}

func (s *fakeStore) FinalizeSyncJob(ctx context.Context, id uuid.UUID, status string, completedAt time.Time, p models.SyncJobProgress) error {
	job, ok := s.jobs[id]
	if !ok {
		return db.ErrJobNotFound
	}
	if !models.CanTransition(job.Status, status) {
		return db.ErrJobNotRunning
	}
	job.Status = status
	job.CompletedAt = &completedAt
	job.ProcessedKeys, job.ErrorsCount, job.APICallsMade = p.ProcessedKeys, p.ErrorsCount, p.APICallsMade
	return nil
}

func (s *fakeStore) FindRunningSyncJob(ctx context.Context, jobType string) (*models.SyncJob, error) {
	for _, job := range s.jobs {
		if job.JobType == jobType && job.IsRunning() {
			return job, nil
		}
	}
	return nil, db.ErrJobNotFound
}

func TestLedger_Lifecycle(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil)
	ctx := context.Background()

	id, err := l.Create(ctx, models.JobTypeCurated, 2)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, models.JobStatusRunning, store.jobs[id].Status)

	require.NoError(t, l.Update(ctx, id, models.SyncJobProgress{ProcessedKeys: 1, APICallsMade: 1}))
	assert.Equal(t, 1, store.jobs[id].ProcessedKeys)

	require.NoError(t, l.Finalize(ctx, id, models.JobStatusCompleted, models.SyncJobProgress{ProcessedKeys: 2, APICallsMade: 2}))
	job := store.jobs[id]
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, job.TotalKeys, job.ProcessedKeys)
	assert.NotNil(t, job.CompletedAt)

	err = l.Finalize(ctx, id, models.JobStatusFailed, models.SyncJobProgress{})
	assert.ErrorIs(t, err, db.ErrJobNotRunning)
}

func TestLedger_CreateFailureIsReportedNotFatal(t *testing.T) {
	store := newFakeStore()
	store.failWrite = errors.New("permission denied")
	core, logs := observer.New(zapcore.ErrorLevel)
	l := New(store, zap.New(core))
	ctx := context.Background()

	id, err := l.Create(ctx, models.JobTypeRanges, 10)
	assert.Equal(t, uuid.Nil, id)
	assert.ErrorIs(t, err, store.failWrite)
	assert.Equal(t, 1, logs.FilterMessage("failed to create sync job").Len())

	assert.ErrorIs(t, l.Update(ctx, id, models.SyncJobProgress{}), ErrNoJob)
	assert.ErrorIs(t, l.Finalize(ctx, id, models.JobStatusCompleted, models.SyncJobProgress{}), ErrNoJob)
}

func TestLedger_NilStoreIsNoop(t *testing.T) {
	l := New(nil, nil)
	ctx := context.Background()

	id, err := l.Create(ctx, models.JobTypeExhaustive, 5)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)
	assert.NoError(t, l.Update(ctx, id, models.SyncJobProgress{}))
	assert.NoError(t, l.Finalize(ctx, id, models.JobStatusCompleted, models.SyncJobProgress{}))
	assert.Nil(t, l.WarnIfRunning(ctx, models.JobTypeExhaustive))
}

func TestLedger_WarnIfRunning(t *testing.T) {
	store := newFakeStore()
	core, logs := observer.New(zapcore.WarnLevel)
	l := New(store, zap.New(core))
	ctx := context.Background()

	assert.Nil(t, l.WarnIfRunning(ctx, models.JobTypeRanges))
	assert.Equal(t, 0, logs.Len())

	id, err := l.Create(ctx, models.JobTypeRanges, 3)
	require.NoError(t, err)

	running := l.WarnIfRunning(ctx, models.JobTypeRanges)
	require.NotNil(t, running)
	assert.Equal(t, id, running.ID)
	assert.Equal(t, 1, logs.FilterMessage("another sync job of this type is still marked running").Len())
	assert.Nil(t, l.WarnIfRunning(ctx, models.JobTypeCurated))
}
