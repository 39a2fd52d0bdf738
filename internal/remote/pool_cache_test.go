package remote

import (
	"context"
	"errors"
	"testing"
)

func TestPoolCacheMemoizesLookup(t *testing.T) {
	calls := 0
	cache := NewPoolCache(128, func(ctx context.Context, poolID string) (*PoolAnalytics, error) {
		calls++
		return &PoolAnalytics{PoolID: poolID, Status: "OPEN"}, nil
	})

	for i := 0; i < 3; i++ {
		a, err := cache.GetPool(context.Background(), "pool-1")
		if err != nil {
			t.Fatalf("GetPool: %v", err)
		}
		if a.PoolID != "pool-1" {
			t.Fatalf("unexpected pool id %q", a.PoolID)
		}
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 lookup call, got %d", calls)
	}
}

func TestPoolCachePropagatesLookupError(t *testing.T) {
	wantErr := errors.New("lookup failed")
	cache := NewPoolCache(128, func(ctx context.Context, poolID string) (*PoolAnalytics, error) {
		return nil, wantErr
	})

	if _, err := cache.GetPool(context.Background(), "pool-1"); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestPoolCacheEvictsLeastRecentlyUsed(t *testing.T) {
	calls := map[string]int{}
	cache := NewPoolCache(2, func(ctx context.Context, poolID string) (*PoolAnalytics, error) {
		calls[poolID]++
		return &PoolAnalytics{PoolID: poolID, Status: "OPEN"}, nil
	})

	ctx := context.Background()
	if _, err := cache.GetPool(ctx, "a"); err != nil {
		t.Fatalf("GetPool a: %v", err)
	}
	if _, err := cache.GetPool(ctx, "b"); err != nil {
		t.Fatalf("GetPool b: %v", err)
	}
	// touch a so b becomes the least-recently-used entry.
	if _, err := cache.GetPool(ctx, "a"); err != nil {
		t.Fatalf("GetPool a again: %v", err)
	}
	// c pushes capacity to 3; b should be evicted, not a.
	if _, err := cache.GetPool(ctx, "c"); err != nil {
		t.Fatalf("GetPool c: %v", err)
	}

	if _, err := cache.GetPool(ctx, "a"); err != nil {
		t.Fatalf("GetPool a after eviction: %v", err)
	}
	if calls["a"] != 1 {
		t.Fatalf("expected a to remain cached, got %d lookups", calls["a"])
	}

	if _, err := cache.GetPool(ctx, "b"); err != nil {
		t.Fatalf("GetPool b after eviction: %v", err)
	}
	if calls["b"] != 2 {
		t.Fatalf("expected b to have been evicted and re-looked-up, got %d lookups", calls["b"])
	}
}
