// Package recipient decides who still has to receive a draft.
package recipient

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/dispatch/internal/newsletter"
)

// Directory lists recipients.
type Directory interface {
	ActiveRecipients(ctx context.Context) ([]newsletter.Recipient, error)
	RecipientsByID(ctx context.Context, ids []int64) ([]newsletter.Recipient, error)
}

// History reports which recipients already have a ledger entry for a draft.
type History interface {
	RecipientIDs(ctx context.Context, draftID int64) ([]int64, error)
}

// Resolver computes the pending recipients of a draft.
type Resolver struct {
	directory Directory
	history   History
}

// NewResolver creates a Resolver.
func NewResolver(directory Directory, history History) *Resolver {
	return &Resolver{directory: directory, history: history}
}

// Resolve returns the active recipients that have no ledger entry for the
// draft, ordered by id. A non-empty explicit list restricts candidates to
// those ids. Recipients with a failed or pending entry are excluded too;
// they are recovered through remediation, never by a re-run.
func (r *Resolver) Resolve(ctx context.Context, draftID int64, explicit []int64) ([]newsletter.Recipient, error) {
	done, err := r.history.RecipientIDs(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("recipient: load ledger: %w", err)
	}

	var candidates []newsletter.Recipient
	if len(explicit) > 0 {
		candidates, err = r.directory.RecipientsByID(ctx, explicit)
	} else {
		candidates, err = r.directory.ActiveRecipients(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("recipient: load candidates: %w", err)
	}

	skip := make(map[int64]struct{}, len(done))
	for _, id := range done {
		skip[id] = struct{}{}
	}

	pending := make([]newsletter.Recipient, 0, len(candidates))
	for _, c := range candidates {
		if !c.Active {
			continue
		}
		if _, ok := skip[c.ID]; ok {
			continue
		}
		pending = append(pending, c)
	}
	return pending, nil
}
