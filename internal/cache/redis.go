package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NeZlox/authorization-service/internal/config"
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// HealthCheck adapts a redis client to the Ping(ctx) error shape used by health checks.
type HealthCheck struct {
	client *redis.Client
}

func NewHealthCheck(client *redis.Client) HealthCheck {
	return HealthCheck{client: client}
}

func (p HealthCheck) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// AcquireOnce claims key for ttl. It reports false when another holder already claimed it.
func AcquireOnce(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (bool, error) {
	ok, err := client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}
