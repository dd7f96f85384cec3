package models

import "time"

// Lookup outcome constants
const (
	OutcomeCovered    = "covered"
	OutcomeNotCovered = "not_covered"
	OutcomeRetryable  = "retryable"
	OutcomeFatal      = "fatal"
)

// CoverageRecord is the cached answer for one key.
type CoverageRecord struct {
	Key                string    `json:"key"`
	IsValid            bool      `json:"is_valid"`     // false when the lookup permanently failed
	HasCoverage        bool      `json:"has_coverage"` // only true when IsValid
	LastCheckedAt      time.Time `json:"last_checked_at"`
	LastAPICheckAt     time.Time `json:"last_api_check_at"`
	LastResponseStatus *int      `json:"last_response_status"`
}

// Consistent reports whether the record honours hasCoverage => isValid.
func (r *CoverageRecord) Consistent() bool {
	return !r.HasCoverage || r.IsValid
}

// CoverageStats summarises the whole cache.
type CoverageStats struct {
	Total   int64 `json:"total"`
	Valid   int64 `json:"valid"`
	Covered int64 `json:"covered"`
}

// Invalid returns the number of keys whose lookup permanently failed.
func (s CoverageStats) Invalid() int64 {
	return s.Total - s.Valid
}

// CoverageRate returns covered/valid as a percentage, or 0 with no valid rows.
func (s CoverageStats) CoverageRate() float64 {
	if s.Valid == 0 {
		return 0
	}
	return float64(s.Covered) / float64(s.Valid) * 100
}
