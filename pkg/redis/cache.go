package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the subset of the Redis API NameCache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NameCache caches company display names by company id.
type NameCache struct {
	kv     KV
	ttl    time.Duration
	prefix string
}

// NewNameCache creates a cache whose entries expire after ttl.
func NewNameCache(kv KV, ttl time.Duration) *NameCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &NameCache{kv: kv, ttl: ttl, prefix: "company_name:"}
}

// Get returns the cached name for id. Misses and Redis failures both
// report false.
func (c *NameCache) Get(ctx context.Context, id string) (string, bool) {
	if c == nil || c.kv == nil {
		return "", false
	}
	name, err := c.kv.Get(ctx, c.prefix+id).Result()
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// Set stores name for id. Failures are ignored.
func (c *NameCache) Set(ctx context.Context, id, name string) {
	if c == nil || c.kv == nil || name == "" {
		return
	}
	_ = c.kv.Set(ctx, c.prefix+id, name, c.ttl).Err()
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
