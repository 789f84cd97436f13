package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type draft struct {
	Subject string `json:"subject"`
	ID      int64  `json:"id"`
}

func newRedisCache(t *testing.T, opts ...RedisOption) (*Redis[draft], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis[draft](client, opts...), mr
}

func TestRedis_SetGetDelete(t *testing.T) {
	t.Parallel()

	c, mr := newRedisCache(t, WithPrefix("draft"), WithDefaultTTL(time.Minute))
	ctx := context.Background()

	_, err := c.Get(ctx, "1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "1", draft{ID: 1, Subject: "Issue 1"}, 0))
	assert.True(t, mr.Exists("draft:1"))
	assert.Equal(t, time.Minute, mr.TTL("draft:1"))

	got, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, draft{ID: 1, Subject: "Issue 1"}, got)

	mr.FastForward(time.Minute)
	_, err = c.Get(ctx, "1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "2", draft{ID: 2}, -1))
	assert.Zero(t, mr.TTL("draft:2"))
	require.NoError(t, c.Delete(ctx, "2"))
	assert.False(t, mr.Exists("draft:2"))
}

func TestRedis_CorruptValue(t *testing.T) {
	t.Parallel()

	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	_, err := c.Get(context.Background(), "bad")
	require.ErrorIs(t, err, ErrUnmarshal)
}

func TestMemory_TTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory[int](time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "default", 1, 0))
	require.NoError(t, c.Set(ctx, "short", 2, time.Second))
	require.NoError(t, c.Set(ctx, "forever", 3, -1))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "short")
	require.ErrorIs(t, err, ErrNotFound)

	v, err := c.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(time.Hour)
	_, err = c.Get(ctx, "default")
	require.ErrorIs(t, err, ErrNotFound)
	v, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	require.NoError(t, c.Delete(ctx, "forever"))
	_, err = c.Get(ctx, "forever")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrSet(t *testing.T) {
	t.Parallel()

	t.Run("loads once then hits cache", func(t *testing.T) {
		t.Parallel()

		c := NewMemory[draft](time.Minute)
		var calls atomic.Int32
		load := func(context.Context) (draft, time.Duration, error) {
			calls.Add(1)
			return draft{ID: 7}, 0, nil
		}

		for range 3 {
			got, err := GetOrSet(context.Background(), c, "7", load)
			require.NoError(t, err)
			assert.Equal(t, int64(7), got.ID)
		}
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("concurrent misses share one load", func(t *testing.T) {
		t.Parallel()

		c, _ := newRedisCache(t)
		var calls atomic.Int32
		release := make(chan struct{})
		load := func(context.Context) (draft, time.Duration, error) {
			calls.Add(1)
			<-release
			return draft{ID: 9}, time.Minute, nil
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := GetOrSet(context.Background(), c, "9", load)
				assert.NoError(t, err)
				assert.Equal(t, int64(9), got.ID)
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()

		c := NewMemory[draft](time.Minute)
		boom := errors.New("db down")
		_, err := GetOrSet(context.Background(), c, "x", func(context.Context) (draft, time.Duration, error) {
			return draft{}, 0, boom
		})
		require.ErrorIs(t, err, boom)

		_, err = c.Get(context.Background(), "x")
		require.ErrorIs(t, err, ErrNotFound)
	})
}
