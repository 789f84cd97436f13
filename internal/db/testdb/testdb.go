//go:build integration

// Package testdb provisions an isolated, migrated PostgreSQL schema per test.
package testdb

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal/db/migrations"
	"github.com/dmitrymomot/dispatch/pkg/db"
	"github.com/dmitrymomot/dispatch/pkg/logger"
)

// New returns a pool whose search_path points at a fresh schema with all
// migrations applied. The schema is dropped when the test ends. Tests are
// skipped when DATABASE_URL is unset.
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	pool, err := db.Connect(ctx, db.Config{ConnectionString: u.String(), RetryAttempts: 1})
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool, migrations.FS, "schema_migrations", logger.NewNope()))

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		_ = admin.Close(context.Background())
	})

	return pool
}

// Recipient inserts a recipient and returns its id.
func Recipient(t *testing.T, pool *pgxpool.Pool, email string, active bool) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO recipients (email, name, active) VALUES ($1, $2, $3) RETURNING id`,
		email, strings.Split(email, "@")[0], active,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// Draft inserts an unsent draft and returns its id.
func Draft(t *testing.T, pool *pgxpool.Pool, subject, body string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO drafts (subject, body_markdown) VALUES ($1, $2) RETURNING id`,
		subject, body,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// ContentItem inserts a content item attached to draftID and returns its id.
func ContentItem(t *testing.T, pool *pgxpool.Pool, draftID int64, title, link string) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO content_items (title, url) VALUES ($1, $2) RETURNING id`, title, link,
	).Scan(&id)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO draft_items (draft_id, content_item_id, position) VALUES ($1, $2, $3)`, draftID, id, id)
	require.NoError(t, err)
	return id
}
