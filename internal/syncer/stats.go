package syncer

import (
	"time"

	"coveragesync/internal/lookup"
	"coveragesync/internal/models"
)

// Stats carries the counters of one run. It is owned by a single Run call.
type Stats struct {
	TotalKeys    int
	Processed    int
	Covered      int
	NotCovered   int
	Errors       int // keys recorded isValid=false plus failed cache writes
	WriteErrors  int
	LedgerErrors int
	APICalls     int
}

func (s *Stats) recordOutcome(out lookup.Outcome) {
	s.Processed++
	s.APICalls += out.Attempts
	switch {
	case out.Failed():
		s.Errors++
	case out.HasCoverage:
		s.Covered++
	default:
		s.NotCovered++
	}
}

func (s *Stats) recordWriteError() {
	s.WriteErrors++
	s.Errors++
}

// Progress is the ledger view of the counters.
func (s Stats) Progress() models.SyncJobProgress {
	return models.SyncJobProgress{
		ProcessedKeys: s.Processed,
		ErrorsCount:   s.Errors,
		APICallsMade:  s.APICalls,
	}
}

// Percent of the gap processed so far.
func (s Stats) Percent() float64 {
	if s.TotalKeys == 0 {
		return 100
	}
	return float64(s.Processed) / float64(s.TotalKeys) * 100
}

// Rate is keys per second over elapsed.
func (s Stats) Rate(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Processed) / elapsed.Seconds()
}

// ETA estimates the remaining time from the measured rate. Zero when unknown.
func (s Stats) ETA(elapsed time.Duration) time.Duration {
	rate := s.Rate(elapsed)
	remaining := s.TotalKeys - s.Processed
	if rate <= 0 || remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// CoverageRate is the share of processed keys found covered, in percent.
func (s Stats) CoverageRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Covered) / float64(s.Processed) * 100
}
