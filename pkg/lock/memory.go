package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Locker.
type Memory struct {
	held map[string]memoryEntry
	now  func() time.Time
	mu   sync.Mutex
}

type memoryEntry struct {
	expiresAt time.Time
	token     string
}

// NewMemory creates an in-process Locker.
func NewMemory() *Memory {
	return &Memory{
		held: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// Acquire implements Locker.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.held[key]; ok && m.now().Before(e.expiresAt) {
		return nil, ErrNotAcquired
	}

	token := uuid.NewString()
	m.held[key] = memoryEntry{token: token, expiresAt: m.now().Add(ttl)}
	return &memoryLock{locker: m, key: key, token: token}, nil
}

type memoryLock struct {
	locker *Memory
	key    string
	token  string
}

func (l *memoryLock) Key() string {
	return l.key
}

func (l *memoryLock) Refresh(_ context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	m := l.locker
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.held[l.key]
	if !ok || e.token != l.token || !m.now().Before(e.expiresAt) {
		return ErrNotHeld
	}
	e.expiresAt = m.now().Add(ttl)
	m.held[l.key] = e
	return nil
}

func (l *memoryLock) Release(_ context.Context) error {
	m := l.locker
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.held[l.key]
	if !ok || e.token != l.token {
		return ErrNotHeld
	}
	delete(m.held, l.key)
	return nil
}
