// Package pacer spaces outbound sends with a fixed delay.
//
// The delay is applied by the caller between successful sends and skipped
// after the last one; the pacer never adapts to provider feedback.
package pacer

import (
	"context"
	"time"
)

// DefaultInterval keeps throughput at two messages per second.
const DefaultInterval = 500 * time.Millisecond

// Pacer waits a fixed interval between sends.
type Pacer struct {
	sleep    func(ctx context.Context, d time.Duration) error
	interval time.Duration
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithInterval overrides the delay between sends. Zero disables pacing.
func WithInterval(d time.Duration) Option {
	return func(p *Pacer) {
		if d >= 0 {
			p.interval = d
		}
	}
}

// WithSleep replaces the sleep function. Intended for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pacer) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// New returns a Pacer using DefaultInterval.
func New(opts ...Option) *Pacer {
	p := &Pacer{
		interval: DefaultInterval,
		sleep:    sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured delay.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks for the configured interval or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.interval)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
