package retry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/pkg/retry"
)

type recordedSleeps struct {
	delays []time.Duration
	mu     sync.Mutex
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordedSleeps) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	rec := &recordedSleeps{}
	p := retry.New(retry.WithSleep(rec.sleep))

	calls := 0
	id, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", errors.New("connection reset")
		}
		return "msg_123", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond}, rec.delays)
	assert.GreaterOrEqual(t, rec.total(), 2500*time.Millisecond)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	rec := &recordedSleeps{}
	p := retry.New(retry.WithSleep(rec.sleep))
	sendErr := errors.New("invalid recipient")

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", sendErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, sendErr)
	assert.Equal(t, 4, calls)
	assert.Len(t, rec.delays, 3)
}

func TestDo_RateLimitDoublesDelay(t *testing.T) {
	t.Parallel()

	rec := &recordedSleeps{}
	p := retry.New(retry.WithSleep(rec.sleep))

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("Too many requests. You can only make 2 requests per second.")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.delays)
}

func TestDo_ZeroRetries(t *testing.T) {
	t.Parallel()

	p := retry.New(retry.WithMaxRetries(0), retry.WithSleep(func(context.Context, time.Duration) error {
		t.Fatal("sleep must not be called")
		return nil
	}))

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringSleep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := retry.New(retry.WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	calls := 0
	_, err := retry.Do(ctx, p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, retry.ErrInterrupted)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := retry.New(retry.WithSleep(func(context.Context, time.Duration) error {
		t.Fatal("no backoff after a canceled attempt")
		return nil
	}))

	_, err := retry.Do(ctx, p, func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("connection reset")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, retry.ErrInterrupted)
}

func TestDo_Deadline(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &recordedSleeps{}
	p := retry.New(
		retry.WithSleep(func(ctx context.Context, d time.Duration) error {
			now = now.Add(d)
			return rec.sleep(ctx, d)
		}),
		retry.WithClock(func() time.Time { return now }),
		retry.WithDeadline(2*time.Second),
	)

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.ErrorIs(t, err, retry.ErrDeadlineExceeded)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := retry.New()

	tests := []struct {
		name        string
		attempt     int
		rateLimited bool
		want        time.Duration
	}{
		{"first retry", 1, false, time.Second},
		{"second retry", 2, false, 1500 * time.Millisecond},
		{"third retry", 3, false, 2250 * time.Millisecond},
		{"rate limited first retry", 1, true, 2 * time.Second},
		{"rate limited third retry", 3, true, 4500 * time.Millisecond},
		{"attempt below one clamps", 0, false, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Delay(tt.attempt, tt.rateLimited))
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	assert.False(t, retry.IsRateLimited(nil))
	assert.False(t, retry.IsRateLimited(errors.New("invalid from address")))
	assert.True(t, retry.IsRateLimited(errors.New("rate_limit_exceeded")))
	assert.True(t, retry.IsRateLimited(errors.New("HTTP 429")))
	assert.True(t, retry.IsRateLimited(errors.New("Rate limit reached")))
}

func TestSleep_RespectsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
