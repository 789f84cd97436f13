package pacer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/pkg/pacer"
)

func TestPacer_DefaultInterval(t *testing.T) {
	t.Parallel()

	var got time.Duration
	p := pacer.New(pacer.WithSleep(func(_ context.Context, d time.Duration) error {
		got = d
		return nil
	}))

	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, 500*time.Millisecond, got)
	assert.Equal(t, pacer.DefaultInterval, p.Interval())
}

func TestPacer_ZeroIntervalSkipsSleep(t *testing.T) {
	t.Parallel()

	p := pacer.New(
		pacer.WithInterval(0),
		pacer.WithSleep(func(context.Context, time.Duration) error {
			t.Fatal("sleep must not be called")
			return nil
		}),
	)

	require.NoError(t, p.Wait(context.Background()))
}

func TestPacer_ActuallyWaits(t *testing.T) {
	t.Parallel()

	p := pacer.New(pacer.WithInterval(20 * time.Millisecond))

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPacer_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pacer.New(pacer.WithInterval(time.Hour))
	require.ErrorIs(t, p.Wait(ctx), context.Canceled)
}

func TestPacer_NilIsNoop(t *testing.T) {
	t.Parallel()

	var p *pacer.Pacer
	require.NoError(t, p.Wait(context.Background()))
}
