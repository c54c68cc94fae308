// Package dedup remembers which transport events were already accepted so a
// redelivered webhook is not processed twice.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultCapacity = 10000
	DefaultTTL      = 24 * time.Hour
	keyPrefix       = "kisan:update:"
)

type Guard interface {
	// ShouldProcess marks id as seen and reports whether this was the first time
	// within the retention window.
	ShouldProcess(ctx context.Context, id string) (bool, error)
	// Forget drops the mark so a redelivery of id is accepted again.
	Forget(ctx context.Context, id string) error
}

type Config struct {
	Backend  string // memory | redis
	Capacity int
	TTL      time.Duration
	RedisURL string
}

// New builds the configured backend. Unknown backends are an error.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Guard, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.Capacity, cfg.TTL), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedis(client, cfg.TTL, logger), nil
	}
	return nil, fmt.Errorf("unknown dedup backend %q", cfg.Backend)
}
