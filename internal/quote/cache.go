package quote

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultCacheSize bounds the local tier; unbounded growth is a defect.
	DefaultCacheSize = 200

	cacheKeyPrefix = "quote:fp:"
)

// Cache memoizes breakdowns keyed by input fingerprint. The local tier is a
// bounded LRU; the optional Redis tier shares results across API replicas
// with a TTL. Entries are never mutated in place: any parameter change
// yields a new fingerprint and a new entry.
type Cache struct {
	local  *lru.Cache[string, Breakdown]
	shared *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache with the given local bound and optional
// shared Redis tier. A size <= 0 falls back to DefaultCacheSize.
func NewCache(size int, shared *redis.Client, ttl time.Duration) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	local, err := lru.New[string, Breakdown](size)
	if err != nil {
		return nil, err
	}
	return &Cache{local: local, shared: shared, ttl: ttl}, nil
}

// Get returns the cached breakdown for the fingerprint. A shared-tier hit
// backfills the local tier.
func (c *Cache) Get(ctx context.Context, fingerprint string) (Breakdown, bool) {
	if c == nil || fingerprint == "" {
		return Breakdown{}, false
	}
	if b, ok := c.local.Get(fingerprint); ok {
		return b, true
	}
	if c.shared == nil {
		return Breakdown{}, false
	}
	data, err := c.shared.Get(ctx, cacheKeyPrefix+fingerprint).Bytes()
	if err != nil {
		return Breakdown{}, false
	}
	var b Breakdown
	if err := json.Unmarshal(data, &b); err != nil {
		return Breakdown{}, false
	}
	c.local.Add(fingerprint, b)
	return b, true
}

// Put stores a successful breakdown in both tiers.
func (c *Cache) Put(ctx context.Context, fingerprint string, b Breakdown) {
	if c == nil || fingerprint == "" {
		return
	}
	c.local.Add(fingerprint, b)
	if c.shared == nil {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	ttl := c.ttl
	if ttl <= 0 {
		ttl = time.Hour
	}
	_ = c.shared.Set(ctx, cacheKeyPrefix+fingerprint, data, ttl).Err()
}

// Clear drops every entry from both tiers.
func (c *Cache) Clear(ctx context.Context) {
	if c == nil {
		return
	}
	c.local.Purge()
	if c.shared == nil {
		return
	}
	iter := c.shared.Scan(ctx, 0, cacheKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = c.shared.Del(ctx, keys...).Err()
	}
}

// Size reports the number of entries in the local tier.
func (c *Cache) Size() int {
	if c == nil {
		return 0
	}
	return c.local.Len()
}
