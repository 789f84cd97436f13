package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/dispatch/pkg/db"
)

const entryColumns = `id, recipient_id, draft_id, status, subject, coalesce(message_id, ''),
	coalesce(failure_reason, ''), attempts, attempted_at, created_at, updated_at`

// Postgres is a Store backed by the sends table.
type Postgres struct {
	db db.Querier
}

// NewPostgres creates a Postgres store. q may be a pool or a transaction.
func NewPostgres(q db.Querier) *Postgres {
	return &Postgres{db: q}
}

func (s *Postgres) Begin(ctx context.Context, recipientID, draftID int64, subject string) (Entry, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO sends (recipient_id, draft_id, subject, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT ON CONSTRAINT sends_recipient_draft_key DO NOTHING
		RETURNING `+entryColumns,
		recipientID, draftID, subject,
	)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrAlreadyRecorded
	}
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: begin: %w", err)
	}
	return e, nil
}

func (s *Postgres) MarkSent(ctx context.Context, id int64, messageID string) error {
	if messageID == "" {
		return ErrEmptyMessageID
	}
	return s.update(ctx, `
		UPDATE sends
		SET status = 'sent', message_id = $2, failure_reason = NULL, updated_at = now()
		WHERE id = $1`, id, messageID)
}

// MarkFailed never downgrades a Sent entry; for those it returns ErrNotFound.
func (s *Postgres) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.update(ctx, `
		UPDATE sends
		SET status = 'failed', failure_reason = $2, updated_at = now()
		WHERE id = $1 AND message_id IS NULL`, id, reason)
}

func (s *Postgres) update(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ledger: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Reopen(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE sends
		SET status = 'pending', failure_reason = NULL, attempts = attempts + 1,
			attempted_at = now(), updated_at = now()
		WHERE id = $1 AND message_id IS NULL
		RETURNING `+entryColumns, id)

	e, err := scanEntry(row)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("ledger: reopen: %w", err)
	}

	if _, err := s.Get(ctx, id); err != nil {
		return Entry{}, err
	}
	return Entry{}, ErrAlreadySent
}

func (s *Postgres) Get(ctx context.Context, id int64) (Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM sends WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: get: %w", err)
	}
	return e, nil
}

func (s *Postgres) GetMany(ctx context.Context, ids []int64) ([]Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+entryColumns+` FROM sends WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("ledger: get many: %w", err)
	}
	return collectEntries(rows)
}

func (s *Postgres) RecipientIDs(ctx context.Context, draftID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT recipient_id FROM sends WHERE draft_id = $1`, draftID)
	if err != nil {
		return nil, fmt.Errorf("ledger: recipient ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("ledger: recipient ids: %w", err)
	}
	return ids, nil
}

func (s *Postgres) ListUnconfirmed(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM sends
		WHERE message_id IS NULL AND ($1::bigint = 0 OR draft_id = $1)
		ORDER BY attempted_at DESC, id DESC
		LIMIT $2`, f.DraftID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: list unconfirmed: %w", err)
	}
	return collectEntries(rows)
}

func (s *Postgres) Summary(ctx context.Context, draftID int64) (Summary, error) {
	var sum Summary
	err := s.db.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'sent'),
			count(*) FILTER (WHERE status = 'failed'),
			count(*) FILTER (WHERE status = 'pending'),
			count(*)
		FROM sends WHERE draft_id = $1`, draftID,
	).Scan(&sum.Sent, &sum.Failed, &sum.Pending, &sum.Total)
	if err != nil {
		return Summary{}, fmt.Errorf("ledger: summary: %w", err)
	}
	return sum, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e                 Entry
		status            string
		messageID, reason string
	)
	err := row.Scan(&e.ID, &e.RecipientID, &e.DraftID, &status, &e.Subject, &messageID,
		&reason, &e.Attempts, &e.AttemptedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}

	e.State, err = stateFrom(Status(status), messageID, reason)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", err, status)
	}
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: scan: %w", err)
	}
	return entries, nil
}
