package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tours:rl:"

// RedisLimiter counts requests in a shared fixed window so that every
// instance sees the same budget.
type RedisLimiter struct {
	redis  redis.UniversalClient
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{redis: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := keyPrefix + key

	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: %w", err)
		}
	}

	if count <= int64(l.limit) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.redis.TTL(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if ttl <= 0 {
		// the counter lost its expiry; restart the window
		if err := l.redis.Expire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: %w", err)
		}
		ttl = l.window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// Ping checks that the Redis server answers.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.redis.Ping(ctx).Err()
}
