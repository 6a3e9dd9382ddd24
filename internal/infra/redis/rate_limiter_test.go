//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow up to the limit within a window", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(newFakeClient())
		key := SenderMessageKey(42)

		// Act / Assert
		for i := 0; i < 3; i++ {
			ok, err := limiter.Allow(ctx, key, 3, time.Minute)
			if err != nil || !ok {
				t.Fatalf("call %d should be allowed, got (%v, %v)", i+1, ok, err)
			}
		}
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if ok {
			t.Error("fourth call must be rejected")
		}
	})

	t.Run("should track senders independently", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(newFakeClient())

		// Act
		if ok, _ := limiter.Allow(ctx, SenderMessageKey(1), 1, time.Minute); !ok {
			t.Fatal("first sender should be allowed")
		}
		if ok, _ := limiter.Allow(ctx, SenderMessageKey(1), 1, time.Minute); ok {
			t.Error("first sender should now be limited")
		}

		// Assert
		if ok, _ := limiter.Allow(ctx, SenderMessageKey(2), 1, time.Minute); !ok {
			t.Error("second sender must not be affected")
		}
	})

	t.Run("should reset after the window lapses", func(t *testing.T) {
		// Arrange
		client := newFakeClient()
		limiter := NewRateLimiter(client)
		key := SenderMessageKey(42)
		if ok, _ := limiter.Allow(ctx, key, 1, 50*time.Millisecond); !ok {
			t.Fatal("first call should be allowed")
		}
		if ok, _ := limiter.Allow(ctx, key, 1, 50*time.Millisecond); ok {
			t.Fatal("second call should be limited")
		}

		// Act: move the fake clock past the window.
		client.now = func() time.Time { return time.Now().Add(time.Second) }

		// Assert
		ok, err := limiter.Allow(ctx, key, 1, 50*time.Millisecond)
		if err != nil || !ok {
			t.Errorf("counter should reset after the window, got (%v, %v)", ok, err)
		}
	})
}
