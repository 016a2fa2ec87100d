package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/qmatch/internal/config"
)

// CounterTTL is refreshed on every read or write of a counter.
const CounterTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForIncomingRequests is the counter of pending requests addressed to a member.
func KeyForIncomingRequests(groupID, memberID uint64) string {
	return fmt.Sprintf("requests:incoming:%d:%d", groupID, memberID)
}

// GetCount returns (count, true, nil) on hit and (0, false, nil) on miss.
// A hit refreshes the TTL.
func (c *RedisCache) GetCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse counter %s: %w", key, err)
	}
	_ = c.Client.Expire(ctx, key, CounterTTL).Err()
	return n, true, nil
}

// SetCount stores a DB-authoritative count.
func (c *RedisCache) SetCount(ctx context.Context, key string, n int64) error {
	return c.Client.Set(ctx, key, n, CounterTTL).Err()
}

// adjustScript moves a counter only if it is already cached, never below zero.
// A missing key stays missing so the next read falls back to the DB.
var adjustScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
  return -1
end
local val = tonumber(redis.call("GET", key)) + tonumber(ARGV[1])
if val < 0 then
  val = 0
end
redis.call("SET", key, val, "EX", ARGV[2])
return val
`)

// Adjust adds delta to a cached counter. Uncached counters are left alone.
func (c *RedisCache) Adjust(ctx context.Context, key string, delta int64) error {
	return adjustScript.Run(ctx, c.Client, []string{key}, delta, int64(CounterTTL/time.Second)).Err()
}

// Invalidate drops a counter so the next read recomputes it.
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}
