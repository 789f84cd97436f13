package ledger

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

type pairKey struct {
	recipientID int64
	draftID     int64
}

// Memory is an in-process Store for tests and single-node development.
type Memory struct {
	mu      sync.Mutex
	entries map[int64]*Entry
	pairs   map[pairKey]int64
	nextID  int64
	now     func() time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[int64]*Entry),
		pairs:   make(map[pairKey]int64),
		now:     time.Now,
	}
}

func (m *Memory) Begin(_ context.Context, recipientID, draftID int64, subject string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey{recipientID: recipientID, draftID: draftID}
	if _, ok := m.pairs[key]; ok {
		return Entry{}, ErrAlreadyRecorded
	}

	m.nextID++
	now := m.now()
	e := &Entry{
		ID:          m.nextID,
		RecipientID: recipientID,
		DraftID:     draftID,
		Subject:     subject,
		State:       Pending{},
		Attempts:    1,
		AttemptedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.entries[e.ID] = e
	m.pairs[key] = e.ID
	return *e, nil
}

func (m *Memory) MarkSent(_ context.Context, id int64, messageID string) error {
	if messageID == "" {
		return ErrEmptyMessageID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.State = Sent{MessageID: messageID}
	e.UpdatedAt = m.now()
	return nil
}

func (m *Memory) MarkFailed(_ context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.Confirmed() {
		return ErrNotFound
	}
	e.State = Failed{Reason: reason}
	e.UpdatedAt = m.now()
	return nil
}

func (m *Memory) Reopen(_ context.Context, id int64) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Confirmed() {
		return Entry{}, ErrAlreadySent
	}

	now := m.now()
	e.State = Pending{}
	e.Attempts++
	e.AttemptedAt = now
	e.UpdatedAt = now
	return *e, nil
}

func (m *Memory) Get(_ context.Context, id int64) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *e, nil
}

func (m *Memory) GetMany(_ context.Context, ids []int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })
	return slices.CompactFunc(out, func(a, b Entry) bool { return a.ID == b.ID }), nil
}

func (m *Memory) RecipientIDs(_ context.Context, draftID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for key := range m.pairs {
		if key.draftID == draftID {
			ids = append(ids, key.recipientID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *Memory) ListUnconfirmed(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, e := range m.entries {
		if e.Confirmed() || (f.DraftID != 0 && e.DraftID != f.DraftID) {
			continue
		}
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := b.AttemptedAt.Compare(a.AttemptedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) Summary(_ context.Context, draftID int64) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sum Summary
	for _, e := range m.entries {
		if e.DraftID != draftID {
			continue
		}
		sum.Total++
		switch e.State.(type) {
		case Sent:
			sum.Sent++
		case Failed:
			sum.Failed++
		case Pending:
			sum.Pending++
		}
	}
	return sum, nil
}
