package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/pkg/lock"
	"github.com/dmitrymomot/dispatch/pkg/mailer"
)

type losingLocker struct{}

func (losingLocker) Acquire(_ context.Context, key string, _ time.Duration) (lock.Lock, error) {
	return losingLock(key), nil
}

type losingLock string

func (l losingLock) Key() string                                { return string(l) }
func (losingLock) Refresh(context.Context, time.Duration) error { return lock.ErrNotHeld }
func (losingLock) Release(context.Context) error                { return lock.ErrNotHeld }

func TestDrain_LockLostCancelsRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 2,
		delivery.WithLocker(losingLocker{}),
		delivery.WithLockTTL(30*time.Millisecond),
	)
	h.sender.fn = func(int, *mailer.Email) (string, error) {
		time.Sleep(100 * time.Millisecond)
		return "msg", nil
	}

	_, err := h.worker.Drain(context.Background(), h.draft.ID, nil)
	require.ErrorIs(t, err, delivery.ErrLockLost)
	assert.False(t, h.draftStatus(t).IsSent())
}
