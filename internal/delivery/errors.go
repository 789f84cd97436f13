package delivery

import "errors"

var (
	// ErrDispatchInProgress is returned when another run holds the draft lock.
	ErrDispatchInProgress = errors.New("delivery: dispatch already in progress")

	// ErrInvalidBatchSize is returned for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("delivery: batch size must be positive")

	// ErrLockLost cancels a run whose draft lock could not be refreshed.
	ErrLockLost = errors.New("delivery: draft lock lost")
)
