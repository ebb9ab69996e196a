package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimitCache(t *testing.T) (*RedisLimitCache, *miniredis.Miniredis) {
	t.Helper()
	mr, errRun := miniredis.Run()
	if errRun != nil {
		t.Fatalf("start miniredis: %v", errRun)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimitCache(client, time.Minute), mr
}

func TestLimitCacheRoundTrip(t *testing.T) {
	cache, _ := newTestLimitCache(t)
	ctx := context.Background()

	if _, hit := cache.Get(ctx, 1, "max_users"); hit {
		t.Fatal("empty cache must miss")
	}

	cache.Set(ctx, 1, "max_users", Bounded(42))
	limit, hit := cache.Get(ctx, 1, "max_users")
	if !hit || limit.Unbounded || limit.Value != 42 {
		t.Fatalf("expected cached 42, hit=%v limit=%+v", hit, limit)
	}

	cache.Set(ctx, 1, "max_storage_bytes", Unlimited())
	limit, hit = cache.Get(ctx, 1, "max_storage_bytes")
	if !hit || !limit.Unbounded {
		t.Fatalf("expected cached unbounded, hit=%v limit=%+v", hit, limit)
	}

	// Keys are scoped per organization.
	if _, hit = cache.Get(ctx, 2, "max_users"); hit {
		t.Fatal("another org's key must miss")
	}
}

func TestLimitCacheInvalidate(t *testing.T) {
	cache, mr := newTestLimitCache(t)
	ctx := context.Background()

	cache.Set(ctx, 1, "max_users", Bounded(42))
	if errInvalidate := cache.Invalidate(ctx, 1, "max_users"); errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}
	if _, hit := cache.Get(ctx, 1, "max_users"); hit {
		t.Fatal("invalidated key must miss")
	}

	// Invalidating an absent key succeeds.
	if errInvalidate := cache.Invalidate(ctx, 1, "max_users"); errInvalidate != nil {
		t.Fatalf("invalidate absent: %v", errInvalidate)
	}
	if mr.Exists(limitCacheKey(1, "max_users")) {
		t.Fatal("key must be gone from the store")
	}
}

func TestLimitCacheGarbageMisses(t *testing.T) {
	cache, mr := newTestLimitCache(t)
	ctx := context.Background()

	mr.Set(limitCacheKey(1, "max_users"), "not-a-number")
	if _, hit := cache.Get(ctx, 1, "max_users"); hit {
		t.Fatal("garbage values must read as a miss")
	}

	mr.Set(limitCacheKey(1, "max_users"), "-5")
	if _, hit := cache.Get(ctx, 1, "max_users"); hit {
		t.Fatal("negative values must read as a miss")
	}
}

func TestLimitCacheDownDegradesToMiss(t *testing.T) {
	mr, errRun := miniredis.Run()
	if errRun != nil {
		t.Fatalf("start miniredis: %v", errRun)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewRedisLimitCache(client, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, 1, "max_users", Bounded(42))
	mr.Close()

	if _, hit := cache.Get(ctx, 1, "max_users"); hit {
		t.Fatal("an unreachable cache must miss, not fail")
	}
	if errInvalidate := cache.Invalidate(ctx, 1, "max_users"); !errors.Is(errInvalidate, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from a failed invalidation, got %v", errInvalidate)
	}
}

func TestEncodeDecodeCachedLimit(t *testing.T) {
	cases := []Limit{Bounded(0), Bounded(7), Unlimited()}
	for _, want := range cases {
		got, ok := decodeCachedLimit(encodeCachedLimit(want))
		if !ok || got != want {
			t.Fatalf("round trip %+v: ok=%v got=%+v", want, ok, got)
		}
	}
}
