package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got string
	if err := mc.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v1" {
		t.Errorf("got %q, want v1", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var got string
	err := mc.Get(context.Background(), "absent", &got)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k1", "v1", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	var got string
	if err := mc.Get(ctx, "k1", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes least recently used.
	var tmp string
	_ = mc.Get(ctx, "a", &tmp)
	time.Sleep(time.Millisecond)

	_ = mc.Set(ctx, "c", "3", time.Minute)

	if err := mc.Get(ctx, "b", &tmp); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &tmp); err != nil {
		t.Errorf("expected a retained, got %v", err)
	}
}

func TestMemoryCacheTypeMismatch(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k1", "a string", time.Minute)

	var b []byte
	if err := mc.Get(ctx, "k1", &b); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}

	var n int
	if err := mc.Get(ctx, "k1", &n); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for unsupported dest, got %v", err)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k1", "v1", time.Minute)
	if err := mc.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	ok, err := mc.Exists(ctx, "k1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected key deleted")
	}
}
