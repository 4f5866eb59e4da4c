package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type view struct{ Total float64 }

func newTestCache(t *testing.T) (*DiaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewDiaryCache(rdb, time.Minute), mr
}

func TestDiaryCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got view
	key, ok, err := c.Get(ctx, 7, "week:2024-06-10", &got)
	if err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if key != "diary:7:0:week:2024-06-10" {
		t.Errorf("key = %q", key)
	}
	if err := c.Set(ctx, key, view{Total: 1200}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, 7, "week:2024-06-10", &got); err != nil || !ok || got.Total != 1200 {
		t.Fatalf("hit: ok=%v err=%v got=%+v", ok, err, got)
	}
	if _, ok, _ := c.Get(ctx, 8, "week:2024-06-10", &got); ok {
		t.Fatal("views must be per user")
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestDiaryCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var got view
	key, _, _ := c.Get(ctx, 7, "month:2024-06", &got)
	c.Set(ctx, key, view{Total: 500})

	if err := c.Invalidate(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, 7, "month:2024-06", &got); ok {
		t.Fatal("invalidated view still served")
	}
}

func TestDiaryCacheSetAfterConcurrentInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// A read misses and builds its view while a meal write bumps the version.
	var got view
	key, ok, err := c.Get(ctx, 1, "summary:2024-06-12:30", &got)
	if err != nil || ok {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, key, view{Total: 100}); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := c.Get(ctx, 1, "summary:2024-06-12:30", &got); ok {
		t.Fatalf("view built before the write is served: %+v", got)
	}
}

func TestDiaryCacheRedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	var got view
	if _, ok, err := c.Get(context.Background(), 1, "week:2024-06-10", &got); err == nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestNewDiaryCacheDefaultTTL(t *testing.T) {
	if c := NewDiaryCache(nil, 0); c.ttl != DefaultTTL {
		t.Errorf("ttl = %v", c.ttl)
	}
}
