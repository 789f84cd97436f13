package retry

import "errors"

var (
	// ErrExhausted wraps the last operation error once all retries are used.
	ErrExhausted = errors.New("retry: attempts exhausted")

	// ErrDeadlineExceeded is returned when the next delay would cross the overall deadline.
	ErrDeadlineExceeded = errors.New("retry: deadline exceeded")

	// ErrInterrupted is returned when the context ends during a backoff
	// delay. It is joined with the context error and the last operation error.
	ErrInterrupted = errors.New("retry: interrupted while waiting")
)
