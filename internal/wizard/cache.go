package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache holds stage results keyed by (stage, input entity id) so that
// revisiting a step does not regenerate it.
type Cache interface {
	Get(ctx context.Context, stage Step, id uuid.UUID, dest any) (bool, error)
	Set(ctx context.Context, stage Step, id uuid.UUID, v any) error
}

func cacheKey(stage Step, id uuid.UUID) string {
	return fmt.Sprintf("buildbuddy:stage:%s:%s", stage, id)
}

type memoryItem struct {
	data    []byte
	expires time.Time
}

type memoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryItem
}

// NewMemoryCache returns a process-local cache. A zero ttl never expires.
func NewMemoryCache(ttl time.Duration) Cache {
	return &memoryCache{ttl: ttl, now: time.Now, items: map[string]memoryItem{}}
}

func (c *memoryCache) Get(_ context.Context, stage Step, id uuid.UUID, dest any) (bool, error) {
	key := cacheKey(stage, id)
	c.mu.Lock()
	item, ok := c.items[key]
	if ok && !item.expires.IsZero() && !c.now().Before(item.expires) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", stage, err)
	}
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, stage Step, id uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", stage, err)
	}
	item := memoryItem{data: data}
	if c.ttl > 0 {
		item.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.items[cacheKey(stage, id)] = item
	c.mu.Unlock()
	return nil
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache stores stage results in Redis with the given ttl.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, stage Step, id uuid.UUID, dest any) (bool, error) {
	data, err := c.rdb.Get(ctx, cacheKey(stage, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", stage, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", stage, err)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, stage Step, id uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", stage, err)
	}
	if err := c.rdb.Set(ctx, cacheKey(stage, id), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", stage, err)
	}
	return nil
}
