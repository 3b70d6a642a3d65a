package session

import (
	"context"
	"qrlogin-svc/src/internal/models"
	"sync"
	"time"
)

// memoryStore is a mutex-guarded in-process Store. Used by tests and
// redis-less development setups; semantics mirror the redis store.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore returns an in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// NewMemoryStoreWithClock returns an in-memory Store reading time from
// the given clock. Tests use this to simulate expiry.
func NewMemoryStoreWithClock(now func() time.Time) Store {
	return &memoryStore{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

func (m *memoryStore) Create(_ context.Context, sessionID string, ttl time.Duration) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; exists {
		return nil, models.ErrSessionConflict
	}

	now := m.now()
	sess := &Session{
		SessionID: sessionID,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	m.sessions[sessionID] = sess
	return sess.Clone(), nil
}

func (m *memoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return nil, models.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (m *memoryStore) CompareAndTransition(_ context.Context, sessionID string, expected []Status, mutate Mutator) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.sessions[sessionID]
	if !exists {
		return nil, models.ErrSessionNotFound
	}

	if !statusIn(current.Status, expected) {
		return nil, models.ErrSessionInvalidState
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	if next.Status != StatusExpired && !m.now().Before(current.ExpiresAt) {
		return nil, models.ErrSessionExpired
	}

	m.sessions[sessionID] = next
	return next.Clone(), nil
}
