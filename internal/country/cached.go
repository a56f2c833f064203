package country

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "country:settings:"

// Cached wraps a Resolver with a Redis snapshot cache so repeated
// calculations against the same destination skip the database. Negative
// results are not cached: an unconfigured destination is re-checked every
// time so newly seeded countries become visible immediately.
type Cached struct {
	Next Resolver
	R    *redis.Client
	TTL  time.Duration
}

// Settings implements Resolver.
func (c Cached) Settings(ctx context.Context, code string) (Settings, error) {
	if c.Next == nil {
		return Settings{}, ErrNotConfigured
	}
	key := cacheKeyPrefix + normalizeCode(code)
	if c.R != nil {
		if data, err := c.R.Get(ctx, key).Bytes(); err == nil {
			var row Settings
			if err := json.Unmarshal(data, &row); err == nil {
				return row, nil
			}
		}
	}
	row, err := c.Next.Settings(ctx, code)
	if err != nil {
		return Settings{}, err
	}
	c.store(ctx, key, row)
	return row, nil
}

// Warm resolves and caches the provided codes, used by the worker.
func (c Cached) Warm(ctx context.Context, codes []string) {
	for _, code := range codes {
		_, _ = c.Settings(ctx, code)
	}
}

func (c Cached) store(ctx context.Context, key string, row Settings) {
	if c.R == nil || c.TTL <= 0 {
		return
	}
	data, err := json.Marshal(row)
	if err != nil {
		return
	}
	_ = c.R.Set(ctx, key, data, c.TTL).Err()
}
