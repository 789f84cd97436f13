package retry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Defaults used by New.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMultiplier = 1.5

	rateLimitFactor = 2
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how many times and how long to wait between attempts.
// A Policy is immutable after New and safe for concurrent use.
type Policy struct {
	sleep      SleepFunc
	logger     *slog.Logger
	classify   func(error) bool
	now        func() time.Time
	baseDelay  time.Duration
	deadline   time.Duration
	multiplier float64
	maxRetries int
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(p *Policy) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.baseDelay = d
		}
	}
}

// WithMultiplier sets the per-attempt backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		if m >= 1 {
			p.multiplier = m
		}
	}
}

// WithDeadline bounds the total time spent across all attempts and delays.
// Zero disables the bound.
func WithDeadline(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.deadline = d
		}
	}
}

// WithSleep replaces the sleep function. Intended for tests.
func WithSleep(fn SleepFunc) Option {
	return func(p *Policy) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// WithClock replaces the time source used for the deadline. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRateLimitClassifier replaces the rate-limit detection used to double delays.
func WithRateLimitClassifier(fn func(error) bool) Option {
	return func(p *Policy) {
		if fn != nil {
			p.classify = fn
		}
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Policy with 3 retries, 1s base delay and a 1.5 multiplier.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		multiplier: DefaultMultiplier,
		sleep:      Sleep,
		classify:   IsRateLimited,
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxRetries returns the configured retry budget.
func (p *Policy) MaxRetries() int {
	return p.maxRetries
}

// Delay returns the wait before retry number attempt (1-based).
// rateLimited doubles the result.
func (p *Policy) Delay(attempt int, rateLimited bool) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.baseDelay)
	for range attempt - 1 {
		d *= p.multiplier
	}
	if rateLimited {
		d *= rateLimitFactor
	}
	return time.Duration(d)
}

// Do invokes fn until it succeeds or the policy gives up.
// At most MaxRetries+1 invocations are made. A context error seen after an
// attempt is returned as is; one that ends a backoff delay is wrapped with
// ErrInterrupted, since by then the operation has already failed.
func Do[T any](ctx context.Context, p *Policy, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
		started = p.now()
	)

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt, p.classify(lastErr))
			if p.deadline > 0 && p.now().Add(delay).Sub(started) > p.deadline {
				return zero, errors.Join(ErrDeadlineExceeded, lastErr)
			}

			p.logger.WarnContext(ctx, "retrying operation",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)

			if err := p.sleep(ctx, delay); err != nil {
				return zero, errors.Join(ErrInterrupted, err, lastErr)
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		lastErr = err
	}

	return zero, errors.Join(ErrExhausted, lastErr)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"429",
}

// IsRateLimited reports whether err looks like a provider rate-limit rejection.
// Detection is by error text since providers surface it inconsistently.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
