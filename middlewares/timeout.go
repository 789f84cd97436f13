package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// Timeout bounds short routes (status, listing). The handler sees the deadline
// through its request context; when it overruns, a TimeoutError is returned
// and the handler's late result is discarded. A non-positive timeout means
// DefaultTimeout.
//
// Routes that drain a whole draft must not use it.
func Timeout(timeout time.Duration) internal.Middleware {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()

			c.SetContext(ctx)

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					c.LogWarn("request timeout", slog.Duration("timeout", timeout))
					return &TimeoutError{Duration: timeout, Path: c.Request().URL.Path}
				}
				return ctx.Err()
			}
		}
	}
}
