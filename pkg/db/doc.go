// Package db provides PostgreSQL helpers built on [github.com/jackc/pgx/v5/pgxpool].
//
// It covers connection setup with retries, embedded goose migrations,
// a readiness probe, and a small transaction helper. Stores depend on the
// [Querier] interface so they can run against a pool or inside a transaction.
//
// # Configuration
//
// Settings are loaded from the environment via [Config]:
//
//	DATABASE_URL                - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - Migrations table name (default: schema_migrations)
//
// # Transactions
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//	    _, err := tx.Exec(ctx, "UPDATE drafts SET status = 'sent' WHERE id = $1", id)
//	    return err
//	})
//
// # Errors
//
//   - [ErrParseConfig]: the connection string does not parse
//   - [ErrConnect]: no connection after all retries
//   - [ErrHealthcheck]: ping failed
//   - [ErrMigrate]: goose could not apply the embedded migrations
package db
