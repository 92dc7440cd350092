package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trace-graph/internal/errors"
)

// CacheService provides short-lived caching of aggregated graph responses.
// The trace ledger is append-only, so cached graphs only go stale by missing
// newly ingested traces; the TTL bounds that window.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyAddressTrace is for per-address trace timelines
	CacheKeyAddressTrace CacheKeyType = "trace:addr"
	// CacheKeyBlockGraph is for per-block aggregated graphs
	CacheKeyBlockGraph CacheKeyType = "trace:block"
	// CacheKeySnapshot is for resolved snapshot views
	CacheKeySnapshot CacheKeyType = "snapshot"
)

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	normalizedParams := make([]string, len(params))
	for i, param := range params {
		normalizedParams[i] = strings.ToLower(param)
	}

	parts := append([]string{string(keyType)}, normalizedParams...)
	return strings.Join(parts, ":")
}

// GenerateAddressTraceKey generates a cache key for an address timeline
func (c *CacheService) GenerateAddressTraceKey(address string) string {
	return c.GenerateCacheKey(CacheKeyAddressTrace, address)
}

// GenerateBlockGraphKey generates a cache key for a block graph
func (c *CacheService) GenerateBlockGraphKey(blockNumber uint64) string {
	return c.GenerateCacheKey(CacheKeyBlockGraph, strconv.FormatUint(blockNumber, 10))
}

// GenerateSnapshotKey generates a cache key for a snapshot view
func (c *CacheService) GenerateSnapshotKey(name string) string {
	return c.GenerateCacheKey(CacheKeySnapshot, name)
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
		return errors.NewCacheError("write", err)
	}
	return nil
}

// Get retrieves a value from cache and deserializes it. Returns false on a
// cache miss.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, errors.NewCacheError("read", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...); err != nil {
		return errors.NewCacheError("invalidate", err)
	}
	return nil
}

// InvalidateSnapshot drops the cached view for a snapshot name
func (c *CacheService) InvalidateSnapshot(ctx context.Context, name string) error {
	return c.Invalidate(ctx, c.GenerateSnapshotKey(name))
}
