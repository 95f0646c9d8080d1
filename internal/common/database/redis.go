// internal/common/database/redis.go
// Redis connection for the token denylist cache

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisPingTimeout bounds the startup connectivity check so a misconfigured
// REDIS_URL fails fast instead of hanging the boot sequence.
const redisPingTimeout = 5 * time.Second

// NewRedisClientFromURL creates a client from a redis:// URL and verifies
// the connection. Redis is an optional cache tier here, so callers may
// treat an error as "run without the cache" rather than fatal.
func NewRedisClientFromURL(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
