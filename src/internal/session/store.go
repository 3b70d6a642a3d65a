package session

import (
	"context"
	"time"
)

// Mutator applies a transition to a copy of the stored record. The
// store persists the result only when all checks pass.
type Mutator func(*Session) error

// Store is the keyed session record store. CompareAndTransition is the
// single serialization point per session: when two callers race, one
// mutation wins and the other observes ErrSessionInvalidState.
type Store interface {
	// Create inserts a fresh pending session. Fails with
	// models.ErrSessionConflict when the id already exists.
	Create(ctx context.Context, sessionID string, ttl time.Duration) (*Session, error)

	// Get returns the stored record or models.ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// CompareAndTransition atomically loads the record, verifies its
	// status is one of expected, applies mutate and persists. Fails
	// with models.ErrSessionNotFound, models.ErrSessionInvalidState,
	// or models.ErrSessionExpired when the record's deadline has
	// passed (unless the mutation itself moves it to expired).
	CompareAndTransition(ctx context.Context, sessionID string, expected []Status, mutate Mutator) (*Session, error)
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
