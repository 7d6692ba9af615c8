package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid sweeper configuration")

	// ErrSweepInProgress is returned when a manual sweep overlaps a running one
	ErrSweepInProgress = errors.New("sweep already in progress")
)
