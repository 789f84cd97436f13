package lock

import "errors"

var (
	// ErrNotAcquired is returned when the key is already held by another owner.
	ErrNotAcquired = errors.New("lock: not acquired")

	// ErrNotHeld is returned when releasing or refreshing a lock that expired or changed owner.
	ErrNotHeld = errors.New("lock: not held")

	// ErrInvalidTTL is returned for non-positive lock TTLs.
	ErrInvalidTTL = errors.New("lock: ttl must be positive")
)
