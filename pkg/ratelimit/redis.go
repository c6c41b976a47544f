package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces a fixed-window counter per key in Redis so that the
// budget is shared across service replicas. The window starts on the first
// request for a key and resets when the key expires.
type RedisLimiter struct {
	client   redis.UniversalClient
	prefix   string
	attempts int64
	window   time.Duration
}

// NewRedisLimiter creates a limiter allowing `attempts` requests per key per
// `window`, stored under prefix-namespaced keys.
func NewRedisLimiter(client redis.UniversalClient, prefix string, attempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		prefix:   prefix,
		attempts: int64(attempts),
		window:   window,
	}
}

// Allow increments the key's counter and reports whether it is still within
// budget. Backend failures are returned to the caller rather than silently
// admitting or blocking.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incr rate limit counter: %w", err)
	}

	// Fixed-window semantics: the TTL is set only by the first hit.
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, fmt.Errorf("expire rate limit counter: %w", err)
		}
	}

	return count <= r.attempts, nil
}
