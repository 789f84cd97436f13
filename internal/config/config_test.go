package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/dispatch?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_JWT_SECRET", "admin-secret")
	t.Setenv("QSTASH_CURRENT_SIGNING_KEY", "current")
	t.Setenv("RESEND_FROM_EMAIL", "news@example.com")
}

// TestLoad uses t.Setenv and cannot run in parallel.
func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 15*time.Minute, cfg.Server.WriteTimeout)
		assert.Equal(t, 30*time.Second, cfg.Dispatch.LockTTL)
		assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.PaceInterval)
		assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
		assert.Equal(t, time.Second, cfg.Dispatch.RetryBaseDelay)
		assert.Equal(t, 10*time.Minute, cfg.Dispatch.ContentCacheTTL)
		assert.True(t, cfg.Jobs.WorkerEnabled)
		assert.Equal(t, 1, cfg.Jobs.SendWorkers)
		assert.Equal(t, "Upstash", cfg.Signature.Issuer)
		assert.Equal(t, "news@example.com", cfg.From())
	})

	t.Run("overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DISPATCH_FROM_EMAIL", "letters@example.com")
		t.Setenv("DISPATCH_FROM_NAME", "Weekly Letters")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com,https://example.com")
		t.Setenv("DISPATCH_PACE_INTERVAL", "1s")
		t.Setenv("JOBS_WORKER_ENABLED", "false")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, `"Weekly Letters" <letters@example.com>`, cfg.From())
		assert.Equal(t, []string{"https://admin.example.com", "https://example.com"}, cfg.Server.CORSAllowedOrigins)
		assert.Equal(t, time.Second, cfg.Dispatch.PaceInterval)
		assert.False(t, cfg.Jobs.WorkerEnabled)
	})

	t.Run("missing admin secret", func(t *testing.T) {
		setRequired(t)
		t.Setenv("ADMIN_JWT_SECRET", "")

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("no signing key", func(t *testing.T) {
		setRequired(t)
		t.Setenv("QSTASH_CURRENT_SIGNING_KEY", "")

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "QSTASH_CURRENT_SIGNING_KEY")
	})

	t.Run("no send workers", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JOBS_SEND_WORKERS", "0")

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "JOBS_SEND_WORKERS")
	})

	t.Run("relative tracking url", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TRACKING_BASE_URL", "/t")

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}
