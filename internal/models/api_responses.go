package models

import (
	"time"

	"github.com/google/uuid"
)

// CoverageResponse is a cached answer as served by the API.
type CoverageResponse struct {
	Key                string    `json:"key"`
	Covered            bool      `json:"covered"`
	IsValid            bool      `json:"is_valid"`
	LastCheckedAt      time.Time `json:"last_checked_at"`
	LastResponseStatus *int      `json:"last_response_status,omitempty"`
	Source             string    `json:"source"` // "cache" or "database"
}

// NewCoverageResponse builds the API view of a record.
func NewCoverageResponse(r *CoverageRecord, source string) CoverageResponse {
	return CoverageResponse{
		Key:                r.Key,
		Covered:            r.IsValid && r.HasCoverage,
		IsValid:            r.IsValid,
		LastCheckedAt:      r.LastCheckedAt,
		LastResponseStatus: r.LastResponseStatus,
		Source:             source,
	}
}

// CoverageStatsResponse contains cache-wide counts.
type CoverageStatsResponse struct {
	Total        int64   `json:"total"`
	Valid        int64   `json:"valid"`
	Invalid      int64   `json:"invalid"`
	Covered      int64   `json:"covered"`
	CoverageRate float64 `json:"coverage_rate"`
}

// NewCoverageStatsResponse builds the API view of the stats.
func NewCoverageStatsResponse(s CoverageStats) CoverageStatsResponse {
	return CoverageStatsResponse{
		Total:        s.Total,
		Valid:        s.Valid,
		Invalid:      s.Invalid(),
		Covered:      s.Covered,
		CoverageRate: s.CoverageRate(),
	}
}

// SyncJobResponse is a ledger entry with derived progress fields.
type SyncJobResponse struct {
	ID              uuid.UUID  `json:"id"`
	JobType         string     `json:"job_type"`
	Status          string     `json:"status"`
	TotalKeys       int        `json:"total_keys"`
	ProcessedKeys   int        `json:"processed_keys"`
	ErrorsCount     int        `json:"errors_count"`
	APICallsMade    int        `json:"api_calls_made"`
	Percent         float64    `json:"percent"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
}

// NewSyncJobResponse builds the API view of a job.
func NewSyncJobResponse(j *SyncJob) SyncJobResponse {
	return SyncJobResponse{
		ID:              j.ID,
		JobType:         j.JobType,
		Status:          j.Status,
		TotalKeys:       j.TotalKeys,
		ProcessedKeys:   j.ProcessedKeys,
		ErrorsCount:     j.ErrorsCount,
		APICallsMade:    j.APICallsMade,
		Percent:         j.Percent(),
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		DurationSeconds: j.Duration().Seconds(),
	}
}
