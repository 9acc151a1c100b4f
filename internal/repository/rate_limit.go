package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"quick_chat/pkg/logger"
	"quick_chat/pkg/ratelimit"
)

const rateLimitKeyPrefix = "ratelimit:%s"

type RateLimitRepository interface {
	// Allow counts one hit for key and reports whether it fits in limit
	// per window, with the hits left.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	redisKey := fmt.Sprintf(rateLimitKeyPrefix, key)

	count, err := r.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err)
		return false, 0, err
	}

	if count == 1 {
		if err := r.redis.Expire(ctx, redisKey, window).Err(); err != nil {
			r.log.Warn("Failed to set TTL on rate limit key", "error", err)
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(limit), remaining, nil
}

// localRateLimitRepository is used when Redis is disabled. Each distinct
// limit/window pair gets its own keyed token bucket.
type localRateLimitRepository struct {
	clock clock.Clock

	mu       sync.Mutex
	limiters map[localLimitKey]*ratelimit.Keyed
}

type localLimitKey struct {
	limit  int
	window time.Duration
}

func NewLocalRateLimitRepository(clk clock.Clock) RateLimitRepository {
	return &localRateLimitRepository{clock: clk, limiters: make(map[localLimitKey]*ratelimit.Keyed)}
}

func (r *localRateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if limit <= 0 || window <= 0 {
		return true, 0, nil
	}
	lk := localLimitKey{limit: limit, window: window}

	r.mu.Lock()
	l, ok := r.limiters[lk]
	if !ok {
		l = ratelimit.New(float64(limit)/window.Seconds(), limit, 2*window)
		r.limiters[lk] = l
	}
	r.mu.Unlock()

	allowed, remaining := l.Allow(key, r.clock.Now())
	return allowed, remaining, nil
}
