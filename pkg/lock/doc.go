// Package lock provides short-lived exclusive locks keyed by string.
//
// Two implementations are available: [Redis] for multi-process deployments
// (SET NX PX with a random token, released and refreshed via Lua scripts so
// that only the holder can touch the key) and [Memory] for single-process
// use and tests.
//
// # Usage
//
//	locker := lock.NewRedis(client, lock.WithPrefix("dispatch:draft:"))
//	l, err := locker.Acquire(ctx, "42", time.Minute)
//	if errors.Is(err, lock.ErrNotAcquired) {
//	    // someone else is working on it
//	}
//	defer l.Release(context.WithoutCancel(ctx))
package lock
