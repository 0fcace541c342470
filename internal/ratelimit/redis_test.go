package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, limit, window), mr
}

func TestRedisLimiter_Allow(t *testing.T) {
	limiter, _ := setupTestRedis(t, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		result, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow() unexpected error = %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if result.Remaining != 3-i {
			t.Errorf("request %d remaining = %d, want %d", i, result.Remaining, 3-i)
		}
	}

	result, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() unexpected error = %v", err)
	}
	if result.Allowed {
		t.Error("fourth request should be rejected")
	}
	if result.RetryAfter <= 0 || result.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, want within (0, 1m]", result.RetryAfter)
	}
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := setupTestRedis(t, 1, time.Minute)
	ctx := context.Background()

	if result, _ := limiter.Allow(ctx, "10.0.0.1"); !result.Allowed {
		t.Fatal("first client should be allowed")
	}
	if result, _ := limiter.Allow(ctx, "10.0.0.2"); !result.Allowed {
		t.Error("second client should have its own budget")
	}
	if result, _ := limiter.Allow(ctx, "10.0.0.1"); result.Allowed {
		t.Error("first client should be over its budget")
	}
}

func TestRedisLimiter_WindowResets(t *testing.T) {
	limiter, mr := setupTestRedis(t, 1, time.Minute)
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "10.0.0.1")
	if result, _ := limiter.Allow(ctx, "10.0.0.1"); result.Allowed {
		t.Fatal("second request in window should be rejected")
	}

	mr.FastForward(time.Minute + time.Second)

	result, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() unexpected error = %v", err)
	}
	if !result.Allowed {
		t.Error("request in new window should be allowed")
	}
}

func TestRedisLimiter_RepairsMissingExpiry(t *testing.T) {
	limiter, mr := setupTestRedis(t, 1, time.Minute)
	ctx := context.Background()

	if err := mr.Set(keyPrefix+"10.0.0.1", "5"); err != nil {
		t.Fatalf("failed to seed key: %v", err)
	}

	result, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() unexpected error = %v", err)
	}
	if result.Allowed {
		t.Error("request should be rejected")
	}
	if ttl := mr.TTL(keyPrefix + "10.0.0.1"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
}

func TestRedisLimiter_RedisUnavailable(t *testing.T) {
	limiter, mr := setupTestRedis(t, 1, time.Minute)
	mr.Close()

	if _, err := limiter.Allow(context.Background(), "10.0.0.1"); err == nil {
		t.Error("Allow() expected error when redis is down")
	}
}
