package lock

import (
	"context"
	"time"
)

// Locker hands out exclusive locks.
type Locker interface {
	// Acquire takes the lock for key or returns ErrNotAcquired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock is a held lock.
type Lock interface {
	// Key returns the locked key without prefix.
	Key() string

	// Refresh extends the lock TTL. Returns ErrNotHeld if the lock was lost.
	Refresh(ctx context.Context, ttl time.Duration) error

	// Release frees the lock. Returns ErrNotHeld if the lock was lost.
	Release(ctx context.Context) error
}

// KeepAlive refreshes l every ttl/3 until ctx is done or a refresh fails.
// The returned channel is closed when the loop stops; it receives the error
// that stopped it, if any.
func KeepAlive(ctx context.Context, l Lock, ttl time.Duration) <-chan error {
	errc := make(chan error, 1)
	interval := max(ttl/3, time.Millisecond)

	go func() {
		defer close(errc)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.Refresh(ctx, ttl); err != nil {
					if ctx.Err() == nil {
						errc <- err
					}
					return
				}
			}
		}
	}()

	return errc
}
