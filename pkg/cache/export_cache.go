package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExportCache stores rendered export bytes in Redis so two requests for the
// same schedule/view/format within the TTL skip re-rendering entirely.
type ExportCache struct {
	client *redis.Client
}

// NewExportCache wraps a Redis client for export byte-blob caching.
func NewExportCache(client *redis.Client) *ExportCache {
	return &ExportCache{client: client}
}

// Get returns the cached bytes for key, if present and unexpired.
func (c *ExportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores value under key with the given TTL.
func (c *ExportCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, key, value, ttl).Err()
}
