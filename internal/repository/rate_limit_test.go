package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"quick_chat/pkg/logger"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisRateLimit_WindowResets(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.NewNop())

	for i := 0; i < 3; i++ {
		allowed, remaining, err := repo.Allow(ctx, "10.0.0.1", 3, time.Minute)
		req.NoError(err)
		req.True(allowed)
		req.Equal(2-i, remaining)
	}

	allowed, remaining, err := repo.Allow(ctx, "10.0.0.1", 3, time.Minute)
	req.NoError(err)
	req.False(allowed)
	req.Equal(0, remaining)

	// When the window passes the key expires
	mr.FastForward(time.Minute + time.Second)

	allowed, _, err = repo.Allow(ctx, "10.0.0.1", 3, time.Minute)
	req.NoError(err)
	req.True(allowed)
}

func TestRedisRateLimit_FailsWhenRedisIsDown(t *testing.T) {
	req := require.New(t)
	mr, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.NewNop())
	mr.Close()

	allowed, _, err := repo.Allow(context.Background(), "k", 1, time.Second)

	req.Error(err)
	req.False(allowed)
}

func TestLocalRateLimit_RefillsOverWindow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clk := clock.NewMock()
	repo := NewLocalRateLimitRepository(clk)

	for i := 0; i < 2; i++ {
		allowed, _, err := repo.Allow(ctx, "k", 2, time.Minute)
		req.NoError(err)
		req.True(allowed)
	}
	allowed, _, err := repo.Allow(ctx, "k", 2, time.Minute)
	req.NoError(err)
	req.False(allowed)

	clk.Add(30 * time.Second)

	allowed, _, err = repo.Allow(ctx, "k", 2, time.Minute)
	req.NoError(err)
	req.True(allowed)
}
