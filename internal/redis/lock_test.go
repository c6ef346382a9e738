package redisclient

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalLockerExcludesConcurrentHolders(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	err := l.WithLock(ctx, "refresh", func(ctx context.Context) error {
		inner := l.WithLock(ctx, "refresh", func(context.Context) error { return nil })
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Fatalf("expected ErrLockNotAcquired, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer lock: %v", err)
	}

	// released after fn returns
	if err := l.WithLock(ctx, "refresh", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
}

func TestLocalLockerPropagatesError(t *testing.T) {
	l := NewLocalLocker()
	want := errors.New("boom")
	if err := l.WithLock(context.Background(), "refresh", func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rdb, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_USERNAME"), os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLocker(rdb, 5*time.Second)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	err = l.WithLock(ctx, key, func(ctx context.Context) error {
		inner := l.WithLock(ctx, key, func(context.Context) error { return nil })
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Fatalf("expected ErrLockNotAcquired, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer lock: %v", err)
	}

	if err := l.WithLock(ctx, key, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
}
