package cpi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"marketgate/pkg/platform/sentinel"
)

// Cache keeps the last good live reading per month so a feed outage can be
// bridged with real data before falling back to pack defaults.
//
// Load returns sentinel.ErrNotFound on a miss.
type Cache interface {
	Load(ctx context.Context, month string) (Reading, error)
	Save(ctx context.Context, r Reading) error
}

const cacheKeyPrefix = "cpi:reading:"

// RedisCache is a Redis-backed Cache shared by every replica.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a cache whose entries expire after ttl. A zero
// ttl keeps entries until evicted.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Load(ctx context.Context, month string) (Reading, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+month).Bytes()
	if errors.Is(err, redis.Nil) {
		return Reading{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Reading{}, fmt.Errorf("load cpi reading: %w", err)
	}
	var r Reading
	if err := json.Unmarshal(raw, &r); err != nil {
		return Reading{}, fmt.Errorf("decode cached cpi reading: %w", err)
	}
	return r, nil
}

func (c *RedisCache) Save(ctx context.Context, r Reading) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode cpi reading: %w", err)
	}
	return c.client.Set(ctx, cacheKeyPrefix+Month(r.AsOf), raw, c.ttl).Err()
}

// MemoryCache is a process-local Cache for single-instance deployments.
type MemoryCache struct {
	mu       sync.RWMutex
	readings map[string]Reading
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{readings: make(map[string]Reading)}
}

func (c *MemoryCache) Load(_ context.Context, month string) (Reading, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.readings[month]
	if !ok {
		return Reading{}, sentinel.ErrNotFound
	}
	return r, nil
}

func (c *MemoryCache) Save(_ context.Context, r Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readings[Month(r.AsOf)] = r
	return nil
}
