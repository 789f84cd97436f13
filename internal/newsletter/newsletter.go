// Package newsletter holds the drafts, recipients and content items the
// dispatcher reads, and the close-out that marks a draft as sent.
package newsletter

import (
	"context"
	"time"
)

// DraftStatus is binary and one-way: draft, then sent.
type DraftStatus string

const (
	DraftStatusDraft DraftStatus = "draft"
	DraftStatusSent  DraftStatus = "sent"
)

// Draft is a newsletter issue awaiting or past dispatch.
type Draft struct {
	SentAt       *time.Time  `json:"sentAt,omitempty"`
	ScheduledAt  *time.Time  `json:"scheduledAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Subject      string      `json:"subject"`
	Preheader    string      `json:"preheader"`
	BodyMarkdown string      `json:"bodyMarkdown"`
	Status       DraftStatus `json:"status"`
	ID           int64       `json:"id"`
}

// IsSent reports whether the draft was closed out.
func (d Draft) IsSent() bool {
	return d.Status == DraftStatusSent
}

// Recipient is an addressable subscriber.
type Recipient struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	ID     int64  `json:"id"`
	Active bool   `json:"active"`
}

// ContentItem is a curated link featured in a draft.
type ContentItem struct {
	SentAt  *time.Time `json:"sentAt,omitempty"`
	Title   string     `json:"title"`
	URL     string     `json:"url"`
	Summary string     `json:"summary"`
	ID      int64      `json:"id"`
}

// Content is everything needed to render a draft.
type Content struct {
	Items []ContentItem `json:"items"`
	Draft Draft         `json:"draft"`
}

// Store reads newsletter data and performs close-out.
type Store interface {
	GetDraft(ctx context.Context, id int64) (Draft, error)

	// DraftItems returns the draft's content items in display order.
	DraftItems(ctx context.Context, draftID int64) ([]ContentItem, error)

	// ActiveRecipients returns every active recipient ordered by id.
	ActiveRecipients(ctx context.Context) ([]Recipient, error)

	// RecipientsByID returns the recipients that exist among ids, active or
	// not, ordered by id.
	RecipientsByID(ctx context.Context, ids []int64) ([]Recipient, error)

	// CloseOut marks the draft sent at the given time and stamps its content
	// items in one transaction. It reports false when the draft was already sent.
	CloseOut(ctx context.Context, draftID int64, at time.Time) (bool, error)

	// DueDrafts returns unsent drafts scheduled at or before now.
	DueDrafts(ctx context.Context, now time.Time) ([]int64, error)
}
