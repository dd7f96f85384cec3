package db

import "errors"

// Domain-level database error sentinels.
var (
	// Coverage cache errors
	ErrCoverageNotFound   = errors.New("coverage record not found")
	ErrInconsistentRecord = errors.New("coverage record has coverage but is not valid")

	// Sync job errors
	ErrJobNotFound    = errors.New("sync job not found")
	ErrJobNotRunning  = errors.New("sync job is not running")
	ErrInvalidJobType = errors.New("invalid sync job type")
)
