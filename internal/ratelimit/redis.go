package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "catalog:ratelimit:"

// Result is the outcome of counting one request
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RedisLimiter counts requests per key in fixed windows stored in Redis,
// so every instance of the service shares the same budget
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit requests per key in each window
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow records a request for key and reports whether it fits in the current window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := keyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incrementing %s: %w", redisKey, err)
	}

	// The first hit opens the window.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("setting expiry on %s: %w", redisKey, err)
		}
	}

	if count <= int64(l.limit) {
		return Result{Allowed: true, Remaining: l.limit - int(count)}, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("reading ttl of %s: %w", redisKey, err)
	}
	if ttl < 0 {
		// A key left without expiry would block the client forever.
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("setting expiry on %s: %w", redisKey, err)
		}
		ttl = l.window
	}

	return Result{Allowed: false, RetryAfter: ttl}, nil
}
