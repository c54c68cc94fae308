package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis shares the seen set between instances. SET NX makes check-and-mark atomic.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "dedup")),
	}
}

func (r *Redis) ShouldProcess(ctx context.Context, id string) (bool, error) {
	ok, err := r.client.SetNX(ctx, keyPrefix+id, 1, r.ttl).Result()
	if err != nil {
		r.logger.Error("dedup check failed", zap.String("event_id", id), zap.Error(err))
		return false, fmt.Errorf("dedup redis: %w", err)
	}
	return ok, nil
}

func (r *Redis) Forget(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("dedup redis: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
