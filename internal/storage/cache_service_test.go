package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/trace-graph/internal/config"
	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/types"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redis, err := NewRedisCache(&config.RedisConfig{
		Host:           mr.Host(),
		Port:           mr.Port(),
		DB:             0,
		MaxConnections: 2,
	})
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { redis.Close() })

	return NewCacheService(redis, ttl), mr
}

func TestCacheService_SetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t, 30*time.Second)
	ctx := context.Background()

	graph := &models.TraceGraph{
		Edges: []*models.TraceEdge{
			{FromAddr: "0xaa", ToAddr: "0xbb", Action: types.ActionCall, Class: types.EdgeClassNormal, Count: 3},
		},
		Metadata: map[string]*models.AddressMetadata{},
	}

	key := cache.GenerateBlockGraphKey(7)
	if err := cache.Set(ctx, key, graph); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got models.TraceGraph
	hit, err := cache.Get(ctx, key, &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Fatal("expected a cache hit")
	}
	if len(got.Edges) != 1 || got.Edges[0].Count != 3 {
		t.Errorf("cached graph mangled: %+v", got.Edges)
	}
}

func TestCacheService_MissIsNotAnError(t *testing.T) {
	cache, _ := setupTestCache(t, 30*time.Second)

	var got models.TraceGraph
	hit, err := cache.Get(context.Background(), "trace:block:404", &got)
	if err != nil {
		t.Fatalf("cache miss must not error: %v", err)
	}
	if hit {
		t.Error("expected a miss")
	}
}

func TestCacheService_EntriesExpire(t *testing.T) {
	cache, mr := setupTestCache(t, 1*time.Second)
	ctx := context.Background()

	key := cache.GenerateAddressTraceKey("0xAA")
	if err := cache.Set(ctx, key, map[string]string{"k": "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(2 * time.Second)

	var got map[string]string
	hit, err := cache.Get(ctx, key, &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Error("entry should have expired")
	}
}

func TestCacheService_KeyNormalization(t *testing.T) {
	cache, _ := setupTestCache(t, 30*time.Second)

	if cache.GenerateAddressTraceKey("0xABCD") != cache.GenerateAddressTraceKey("0xabcd") {
		t.Error("address keys must be case-insensitive")
	}
	if cache.GenerateSnapshotKey("Main") != "snapshot:main" {
		t.Errorf("unexpected key: %s", cache.GenerateSnapshotKey("Main"))
	}
	if cache.GenerateBlockGraphKey(42) != "trace:block:42" {
		t.Errorf("unexpected key: %s", cache.GenerateBlockGraphKey(42))
	}
}

func TestCacheService_InvalidateSnapshot(t *testing.T) {
	cache, _ := setupTestCache(t, 30*time.Second)
	ctx := context.Background()

	key := cache.GenerateSnapshotKey("main")
	if err := cache.Set(ctx, key, map[string]string{"k": "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cache.InvalidateSnapshot(ctx, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]string
	hit, err := cache.Get(ctx, key, &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Error("expected invalidated entry to be gone")
	}
}

func TestCacheService_BackendFailureIsCategorized(t *testing.T) {
	cache, mr := setupTestCache(t, 30*time.Second)
	ctx := context.Background()

	key := cache.GenerateSnapshotKey("main")
	if err := cache.Set(ctx, key, map[string]string{"k": "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.SetError("backend down")

	var got map[string]string
	_, err := cache.Get(ctx, key, &got)
	if err == nil {
		t.Fatal("expected an error from a failing backend")
	}
	catErr, ok := err.(*errors.CategorizedError)
	if !ok {
		t.Fatalf("expected *errors.CategorizedError, got %T", err)
	}
	if catErr.Code != "CACHE_ERROR" {
		t.Errorf("Code = %v, want CACHE_ERROR", catErr.Code)
	}

	if err := cache.Set(ctx, key, map[string]string{"k": "v2"}); err == nil {
		t.Error("expected Set against a failing backend to error")
	}
	if err := cache.InvalidateSnapshot(ctx, "main"); err == nil {
		t.Error("expected Invalidate against a failing backend to error")
	}
}
