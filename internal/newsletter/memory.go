package newsletter

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and local development.
type Memory struct {
	mu         sync.RWMutex
	drafts     map[int64]Draft
	items      map[int64]ContentItem
	draftItems map[int64][]int64
	recipients map[int64]Recipient
	nextID     int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		drafts:     make(map[int64]Draft),
		items:      make(map[int64]ContentItem),
		draftItems: make(map[int64][]int64),
		recipients: make(map[int64]Recipient),
	}
}

// AddDraft stores d with a fresh id and returns it.
func (m *Memory) AddDraft(d Draft) Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	if d.Status == "" {
		d.Status = DraftStatusDraft
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	m.drafts[d.ID] = d
	return d
}

// AddRecipient stores r with a fresh id and returns it.
func (m *Memory) AddRecipient(r Recipient) Recipient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.recipients[r.ID] = r
	return r
}

// AddItem stores ci, attaches it to the draft after any existing items and returns it.
func (m *Memory) AddItem(draftID int64, ci ContentItem) ContentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ci.ID = m.nextID
	m.items[ci.ID] = ci
	m.draftItems[draftID] = append(m.draftItems[draftID], ci.ID)
	return ci
}

func (m *Memory) GetDraft(_ context.Context, id int64) (Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

func (m *Memory) DraftItems(_ context.Context, draftID int64) ([]ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.draftItems[draftID]
	out := make([]ContentItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.items[id])
	}
	return out, nil
}

func (m *Memory) ActiveRecipients(_ context.Context) ([]Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Recipient
	for _, r := range m.recipients {
		if r.Active {
			out = append(out, r)
		}
	}
	sortRecipients(out)
	return out, nil
}

func (m *Memory) RecipientsByID(_ context.Context, ids []int64) ([]Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Recipient
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if r, ok := m.recipients[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, r)
		}
	}
	sortRecipients(out)
	return out, nil
}

func (m *Memory) CloseOut(_ context.Context, draftID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[draftID]
	if !ok {
		return false, ErrDraftNotFound
	}
	if d.IsSent() {
		return false, nil
	}
	d.Status = DraftStatusSent
	d.SentAt = &at
	d.UpdatedAt = time.Now()
	m.drafts[draftID] = d
	for _, id := range m.draftItems[draftID] {
		ci := m.items[id]
		ci.SentAt = &at
		m.items[id] = ci
	}
	return true, nil
}

func (m *Memory) DueDrafts(_ context.Context, now time.Time) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []Draft
	for _, d := range m.drafts {
		if !d.IsSent() && d.ScheduledAt != nil && !d.ScheduledAt.After(now) {
			due = append(due, d)
		}
	}
	slices.SortFunc(due, func(a, b Draft) int {
		return cmp.Or(a.ScheduledAt.Compare(*b.ScheduledAt), cmp.Compare(a.ID, b.ID))
	})
	ids := make([]int64, len(due))
	for i, d := range due {
		ids[i] = d.ID
	}
	return ids, nil
}

func sortRecipients(rs []Recipient) {
	slices.SortFunc(rs, func(a, b Recipient) int { return cmp.Compare(a.ID, b.ID) })
}
