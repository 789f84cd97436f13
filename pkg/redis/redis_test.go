package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/pkg/redis"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	require.ErrorIs(t, err, redis.ErrEmptyURL)

	for _, url := range []string{"http://localhost:6379", "localhost:6379", "postgres://localhost:5432"} {
		_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: url})
		require.ErrorIs(t, err, redis.ErrParseURL, url)
	}

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "redis://localhost:6379/notadb"})
	require.ErrorIs(t, err, redis.ErrParseURL)
}

func TestConnect_Miniredis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL: "redis://" + mr.Addr() + "/0",
		RetryAttempts: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	v, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	require.NoError(t, redis.Healthcheck(client)(context.Background()))

	mr.SetError("LOADING")
	require.ErrorIs(t, redis.Healthcheck(client)(context.Background()), redis.ErrHealthcheck)
}

func TestConnect_RetriesUntilContextDone(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := redis.Connect(ctx, redis.Config{
		ConnectionURL: "redis://" + addr,
		RetryAttempts: 5,
		RetryInterval: time.Second,
		DialTimeout:   50 * time.Millisecond,
	})
	require.ErrorIs(t, err, redis.ErrConnect)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, redis.Healthcheck(nil)(context.Background()), redis.ErrHealthcheck)
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestShutdown(t *testing.T) {
	t.Parallel()

	require.NoError(t, redis.Shutdown(closer{})(context.Background()))
	boom := errors.New("boom")
	require.ErrorIs(t, redis.Shutdown(closer{err: boom})(context.Background()), boom)
}
