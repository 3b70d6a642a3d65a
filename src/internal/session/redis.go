package session

import (
	"context"
	"encoding/json"
	"errors"
	"qrlogin-svc/src/internal/models"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "qr:session:"

// casRetries bounds optimistic-transaction retries when WATCH aborts.
const casRetries = 5

// redisStore keeps session records in Redis. Records outlive their
// logical expiry by a retention window so status queries can still
// compute `expired` at read time.
type redisStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisStore(client *redis.Client, retention time.Duration) Store {
	return &redisStore{
		client:    client,
		retention: retention,
	}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *redisStore) Create(ctx context.Context, sessionID string, ttl time.Duration) (*Session, error) {
	now := time.Now()
	sess := &Session{
		SessionID: sessionID,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to marshal session")
		return nil, models.ErrSessionCreating
	}

	ok, err := r.client.SetNX(ctx, sessionKey(sessionID), data, ttl+r.retention).Result()
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to create session")
		return nil, models.ErrRedisSet
	}
	if !ok {
		return nil, models.ErrSessionConflict
	}

	return sess, nil
}

func (r *redisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to get session")
		return nil, models.ErrRedisGet
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to unmarshal session")
		return nil, models.ErrRedisGet
	}

	return &sess, nil
}

func (r *redisStore) CompareAndTransition(ctx context.Context, sessionID string, expected []Status, mutate Mutator) (*Session, error) {
	key := sessionKey(sessionID)
	var result *Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return models.ErrSessionNotFound
			}
			return models.ErrRedisGet
		}

		var current Session
		if err := json.Unmarshal([]byte(data), &current); err != nil {
			return models.ErrRedisGet
		}

		if !statusIn(current.Status, expected) {
			return models.ErrSessionInvalidState
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return err
		}

		if next.Status != StatusExpired && !time.Now().Before(current.ExpiresAt) {
			return models.ErrSessionExpired
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return models.ErrSessionUpdating
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}

		result = next
		return nil
	}

	// WATCH aborts when another writer touches the key first; on retry
	// the loser re-reads and normally lands in ErrSessionInvalidState.
	for i := 0; i < casRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	logrus.WithField("session_id", sessionID).Error("Session transition exhausted retries")
	return nil, models.ErrSessionUpdating
}
