package code

import (
	"context"
	"qrlogin-svc/src/internal/models"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	codeKeyPrefix      = "code:"
	rateLimitKeyPrefix = "code:rl:"
)

// Repository stores one-time codes with TTL and enforces the
// per-recipient send rate limit.
type Repository interface {
	SaveCode(ctx context.Context, recipient, code string, ttl, rateLimit time.Duration) error
}

type repository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) Repository {
	return &repository{client: client}
}

func (r *repository) SaveCode(ctx context.Context, recipient, code string, ttl, rateLimit time.Duration) error {
	ok, err := r.client.SetNX(ctx, rateLimitKeyPrefix+recipient, 1, rateLimit).Result()
	if err != nil {
		logrus.WithError(err).WithField("recipient", recipient).Error("Failed to check code rate limit")
		return models.ErrRedisSet
	}
	if !ok {
		logrus.WithField("recipient", recipient).Warn("Code requested too frequently")
		return models.ErrCodeRateLimited
	}

	if err := r.client.Set(ctx, codeKeyPrefix+recipient, code, ttl).Err(); err != nil {
		logrus.WithError(err).WithField("recipient", recipient).Error("Failed to store code")
		return models.ErrRedisSet
	}

	return nil
}
