package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coveragesync/internal/config"
	"coveragesync/internal/db"
	"coveragesync/internal/models"
)

type fakeStore struct {
	pingErr  error
	rows     map[string]*models.CoverageRecord
	jobs     []models.SyncJob
	lookups  int
	statsErr error
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeStore) GetCoverage(ctx context.Context, key string) (*models.CoverageRecord, error) {
	s.lookups++
	if r, ok := s.rows[key]; ok {
		return r, nil
	}
	return nil, db.ErrCoverageNotFound
}

func (s *fakeStore) GetCoverageStats(ctx context.Context) (models.CoverageStats, error) {
	if s.statsErr != nil {
		return models.CoverageStats{}, s.statsErr
	}
	var st models.CoverageStats
	for _, r := range s.rows {
		st.Total++
		if r.IsValid {
			st.Valid++
		}
		if r.HasCoverage {
			st.Covered++
		}
	}
	return st, nil
}

func (s *fakeStore) ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	if len(s.jobs) > limit {
		return s.jobs[:limit], nil
	}
	return s.jobs, nil
}

func (s *fakeStore) GetSyncJob(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return &s.jobs[i], nil
		}
	}
	return nil, db.ErrJobNotFound
}

// memCache stands in for the Redis storage.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memCache) Set(key string, val []byte, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func newTestServer(t *testing.T, store *fakeStore, cache *memCache) *Server {
	t.Helper()
	s, err := New(&config.Config{ServerAddr: ":0"}, zap.NewNop())
	require.NoError(t, err)
	if cache != nil {
		s.RegisterRoutes(store, cache)
	} else {
		s.RegisterRoutes(store, nil)
	}
	return s
}

func doGet(t *testing.T, s *Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func seededStore() *fakeStore {
	status := 200
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	done := now.Add(90 * time.Second)
	return &fakeStore{
		rows: map[string]*models.CoverageRecord{
			"10001": {Key: "10001", IsValid: true, HasCoverage: true, LastCheckedAt: now, LastAPICheckAt: now, LastResponseStatus: &status},
			"10002": {Key: "10002", IsValid: true, LastCheckedAt: now, LastAPICheckAt: now},
			"90001": {Key: "90001", LastCheckedAt: now, LastAPICheckAt: now},
		},
		jobs: []models.SyncJob{
			{ID: uuid.New(), JobType: models.JobTypeRanges, Status: models.JobStatusCompleted, TotalKeys: 3, ProcessedKeys: 3, APICallsMade: 5, StartedAt: now, CompletedAt: &done},
		},
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, seededStore(), nil)
	resp, body := doGet(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	down := seededStore()
	down.pingErr = errors.New("connection refused")
	s = newTestServer(t, down, nil)
	resp, body = doGet(t, s, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "error", decode(t, body).Status)
}

func TestCoverageEndpoint(t *testing.T) {
	s := newTestServer(t, seededStore(), nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCover  bool
	}{
		{"covered", "/api/coverage/10001", http.StatusOK, true},
		{"not covered", "/api/coverage/10002", http.StatusOK, false},
		{"zip plus four", "/api/coverage/10001-1234", http.StatusOK, true},
		{"failed lookup", "/api/coverage/90001", http.StatusOK, false},
		{"not cached", "/api/coverage/55555", http.StatusNotFound, false},
		{"invalid key", "/api/coverage/abc", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doGet(t, s, tt.path)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			env := decode(t, body)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "error", env.Status)
				assert.NotEmpty(t, env.Error)
				return
			}
			var got models.CoverageResponse
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, tt.wantCover, got.Covered)
		})
	}
}

func TestCoverageEndpoint_ReadThroughCache(t *testing.T) {
	store := seededStore()
	cache := &memCache{data: make(map[string][]byte)}
	s := newTestServer(t, store, cache)

	_, body := doGet(t, s, "/api/coverage/10001")
	var first models.CoverageResponse
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &first))
	assert.Equal(t, "database", first.Source)
	assert.Contains(t, cache.data, "coverage:10001")

	_, body = doGet(t, s, "/api/coverage/10001")
	var second models.CoverageResponse
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &second))
	assert.Equal(t, "cache", second.Source)
	assert.True(t, second.Covered)
	assert.Equal(t, 1, store.lookups)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, seededStore(), nil)
	resp, body := doGet(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats models.CoverageStatsResponse
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &stats))
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Valid)
	assert.Equal(t, int64(1), stats.Invalid)
	assert.Equal(t, int64(1), stats.Covered)
	assert.InDelta(t, 50.0, stats.CoverageRate, 0.001)
}

func TestJobEndpoints(t *testing.T) {
	store := seededStore()
	s := newTestServer(t, store, nil)

	resp, body := doGet(t, s, "/api/jobs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jobs []models.SyncJobResponse
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, 100.0, jobs[0].Percent)
	assert.Equal(t, 90.0, jobs[0].DurationSeconds)

	resp, body = doGet(t, s, "/api/jobs/"+store.jobs[0].ID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job models.SyncJobResponse
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &job))
	assert.Equal(t, store.jobs[0].ID, job.ID)

	resp, _ = doGet(t, s, "/api/jobs/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doGet(t, s, "/api/jobs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doGet(t, s, "/api/jobs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, seededStore(), nil)
	resp, body := doGet(t, s, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Recent sync jobs")
	assert.Contains(t, string(body), models.JobTypeRanges)
	assert.Contains(t, string(body), "3/3")
}

func TestDashboard_StoreErrorRendersErrorPage(t *testing.T) {
	store := seededStore()
	store.statsErr = errors.New("db down")
	s := newTestServer(t, store, nil)

	resp, body := doGet(t, s, "/")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "Internal Server Error")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, seededStore(), nil)
	resp, body := doGet(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
