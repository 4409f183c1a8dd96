package cache

import (
	"context"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates the shared Redis client
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the Redis connection
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
