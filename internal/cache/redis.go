package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rpggio/salesportal/internal/config"
)

// NewRedisClient connects to Redis. It returns nil when the server cannot
// be reached, in which case callers run without the cache.
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
