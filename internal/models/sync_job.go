package models

import (
	"time"

	"github.com/google/uuid"
)

// Job type constants
const (
	JobTypeExhaustive   = "exhaustive"
	JobTypeCurated      = "curated"
	JobTypeRanges       = "ranges"
	JobTypeCoverageOnly = "coverage-only"
)

// Job status constants
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// SyncJob is one synchronization run recorded in the job ledger.
type SyncJob struct {
	ID            uuid.UUID  `json:"id"`
	JobType       string     `json:"job_type"`
	Status        string     `json:"status"`
	TotalKeys     int        `json:"total_keys"`
	ProcessedKeys int        `json:"processed_keys"`
	ErrorsCount   int        `json:"errors_count"`
	APICallsMade  int        `json:"api_calls_made"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// SyncJobProgress carries the counters pushed on interim ledger updates.
type SyncJobProgress struct {
	ProcessedKeys int
	ErrorsCount   int
	APICallsMade  int
}

// IsRunning returns true if the job has not been finalized.
func (j *SyncJob) IsRunning() bool {
	return j.Status == JobStatusRunning
}

// IsTerminal returns true once the job is completed or failed.
func (j *SyncJob) IsTerminal() bool {
	return IsTerminalJobStatus(j.Status)
}

// Percent returns processed/total as a percentage. An empty job is 100% done.
func (j *SyncJob) Percent() float64 {
	if j.TotalKeys == 0 {
		return 100
	}
	return float64(j.ProcessedKeys) / float64(j.TotalKeys) * 100
}

// Duration returns the wall-clock time of the job, measured up to now for running jobs.
func (j *SyncJob) Duration() time.Duration {
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.StartedAt)
	}
	return time.Since(j.StartedAt)
}

// IsTerminalJobStatus returns true for completed and failed.
func IsTerminalJobStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// CanTransition reports whether a job may move from one status to another.
// Transitions only move forward: pending -> running -> completed | failed.
// A pending job may also fail directly.
func CanTransition(from, to string) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusRunning || to == JobStatusFailed
	case JobStatusRunning:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// ValidJobType returns true if the job type is known.
func ValidJobType(jobType string) bool {
	switch jobType {
	case JobTypeExhaustive, JobTypeCurated, JobTypeRanges, JobTypeCoverageOnly:
		return true
	}
	return false
}
