package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/qmatch/internal/cache"
	"github.com/oggyb/qmatch/internal/config"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCounterMissThenHit(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	key := cache.KeyForIncomingRequests(1, 42)
	assert.Equal(t, "requests:incoming:1:42", key)

	_, hit, err := c.GetCount(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetCount(ctx, key, 3))
	n, hit, err := c.GetCount(ctx, key)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, cache.CounterTTL, mr.TTL(key))
}

func TestAdjustOnlyTouchesCachedCounters(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	key := cache.KeyForIncomingRequests(1, 7)

	require.NoError(t, c.Adjust(ctx, key, 1))
	assert.False(t, mr.Exists(key), "uncached counter must stay uncached")

	require.NoError(t, c.SetCount(ctx, key, 1))
	require.NoError(t, c.Adjust(ctx, key, 1))
	n, _, err := c.GetCount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, c.Adjust(ctx, key, -5))
	n, _, err = c.GetCount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "never below zero")

	require.NoError(t, c.Invalidate(ctx, key))
	assert.False(t, mr.Exists(key))
}
