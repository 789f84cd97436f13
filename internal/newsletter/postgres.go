package newsletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/dispatch/pkg/db"
)

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) GetDraft(ctx context.Context, id int64) (Draft, error) {
	var d Draft
	err := s.pool.QueryRow(ctx, `
		SELECT id, subject, preheader, body_markdown, status, scheduled_at, sent_at, created_at, updated_at
		FROM drafts WHERE id = $1`, id,
	).Scan(&d.ID, &d.Subject, &d.Preheader, &d.BodyMarkdown, &d.Status, &d.ScheduledAt, &d.SentAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("newsletter: get draft: %w", err)
	}
	return d, nil
}

func (s *Postgres) DraftItems(ctx context.Context, draftID int64) ([]ContentItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ci.id, ci.title, ci.url, ci.summary, ci.sent_at
		FROM draft_items di
		JOIN content_items ci ON ci.id = di.content_item_id
		WHERE di.draft_id = $1
		ORDER BY di.position, ci.id`, draftID)
	if err != nil {
		return nil, fmt.Errorf("newsletter: draft items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ContentItem, error) {
		var ci ContentItem
		err := row.Scan(&ci.ID, &ci.Title, &ci.URL, &ci.Summary, &ci.SentAt)
		return ci, err
	})
	if err != nil {
		return nil, fmt.Errorf("newsletter: draft items: %w", err)
	}
	return items, nil
}

func (s *Postgres) ActiveRecipients(ctx context.Context) ([]Recipient, error) {
	return s.recipients(ctx, `SELECT id, email, name, active FROM recipients WHERE active ORDER BY id`)
}

func (s *Postgres) RecipientsByID(ctx context.Context, ids []int64) ([]Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.recipients(ctx, `SELECT id, email, name, active FROM recipients WHERE id = ANY($1) ORDER BY id`, ids)
}

func (s *Postgres) recipients(ctx context.Context, sql string, args ...any) ([]Recipient, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("newsletter: recipients: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Recipient, error) {
		var r Recipient
		err := row.Scan(&r.ID, &r.Email, &r.Name, &r.Active)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("newsletter: recipients: %w", err)
	}
	return out, nil
}

func (s *Postgres) CloseOut(ctx context.Context, draftID int64, at time.Time) (bool, error) {
	var closed bool
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE drafts SET status = 'sent', sent_at = $2, updated_at = now()
			WHERE id = $1 AND status = 'draft'`, draftID, at)
		if err != nil {
			return fmt.Errorf("mark draft sent: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM drafts WHERE id = $1)`, draftID).Scan(&exists); err != nil {
				return fmt.Errorf("check draft: %w", err)
			}
			if !exists {
				return ErrDraftNotFound
			}
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE content_items SET sent_at = $2
			WHERE id IN (SELECT content_item_id FROM draft_items WHERE draft_id = $1)`, draftID, at); err != nil {
			return fmt.Errorf("stamp content items: %w", err)
		}
		closed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return false, err
		}
		return false, fmt.Errorf("newsletter: close out: %w", err)
	}
	return closed, nil
}

func (s *Postgres) DueDrafts(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM drafts
		WHERE status = 'draft' AND scheduled_at IS NOT NULL AND scheduled_at <= $1
		ORDER BY scheduled_at, id`, now)
	if err != nil {
		return nil, fmt.Errorf("newsletter: due drafts: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("newsletter: due drafts: %w", err)
	}
	return ids, nil
}
