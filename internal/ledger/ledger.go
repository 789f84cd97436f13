// Package ledger records every send attempt of a draft to a recipient.
//
// The ledger is the idempotency record of the dispatcher: one entry per
// (recipient, draft) pair, inserted as Pending before the provider is called
// and moved to Sent or Failed once it answers. Entries are never deleted;
// remediation reopens them in place.
package ledger

import (
	"context"
	"time"
)

// Entry is one (recipient, draft) send record.
type Entry struct {
	State       State
	Subject     string
	AttemptedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          int64
	RecipientID int64
	DraftID     int64
	Attempts    int
}

// MessageID returns the provider message id, or "" unless the entry is Sent.
func (e Entry) MessageID() string {
	if s, ok := e.State.(Sent); ok {
		return s.MessageID
	}
	return ""
}

// Confirmed reports whether the provider accepted the message.
func (e Entry) Confirmed() bool {
	return e.MessageID() != ""
}

// Summary counts a draft's entries by status.
type Summary struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// Filter narrows ListUnconfirmed.
type Filter struct {
	// DraftID limits results to one draft when non-zero.
	DraftID int64
	// Limit caps the result size when positive.
	Limit int
}

// Store persists ledger entries.
type Store interface {
	// Begin claims the (recipient, draft) pair by inserting a Pending entry.
	// It returns ErrAlreadyRecorded when the pair already has an entry.
	Begin(ctx context.Context, recipientID, draftID int64, subject string) (Entry, error)

	// MarkSent records the provider message id.
	MarkSent(ctx context.Context, id int64, messageID string) error

	// MarkFailed records why the attempt failed.
	MarkFailed(ctx context.Context, id int64, reason string) error

	// Reopen moves an unconfirmed entry back to Pending and counts a new
	// attempt. It returns ErrAlreadySent for confirmed entries.
	Reopen(ctx context.Context, id int64) (Entry, error)

	// Get returns one entry.
	Get(ctx context.Context, id int64) (Entry, error)

	// GetMany returns the entries that exist among ids, ordered by id.
	GetMany(ctx context.Context, ids []int64) ([]Entry, error)

	// RecipientIDs returns every recipient that has an entry for the draft.
	RecipientIDs(ctx context.Context, draftID int64) ([]int64, error)

	// ListUnconfirmed returns entries without a provider message id,
	// most recent attempt first.
	ListUnconfirmed(ctx context.Context, f Filter) ([]Entry, error)

	// Summary counts the draft's entries by status.
	Summary(ctx context.Context, draftID int64) (Summary, error)
}
