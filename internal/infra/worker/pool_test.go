//go:build !integration

package worker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestShardedPool(t *testing.T) {
	t.Run("should run submitted tasks", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := NewShardedPool(4, newTestLogger())
		p.Start(ctx)
		defer p.Stop()

		done := make(chan struct{})

		// Act
		err := p.Submit(1, func(ctx context.Context) error {
			close(done)
			return nil
		})

		// Assert
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task never ran")
		}
	})

	t.Run("should keep per-key order", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := NewShardedPool(4, newTestLogger())
		p.Start(ctx)
		defer p.Stop()

		var mu sync.Mutex
		var got []int
		var wg sync.WaitGroup

		// Act: submit 20 tasks for the same key; they must execute in order.
		for i := 0; i < 20; i++ {
			i := i
			wg.Add(1)
			if err := p.Submit(7, func(ctx context.Context) error {
				defer wg.Done()
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
				return nil
			}); err != nil {
				t.Fatalf("Submit %d failed: %v", i, err)
			}
		}
		wg.Wait()

		// Assert
		for i, v := range got {
			if v != i {
				t.Fatalf("order broken at %d: %v", i, got)
			}
		}
	})

	t.Run("should reject nil tasks", func(t *testing.T) {
		p := NewShardedPool(1, newTestLogger())
		if err := p.Submit(1, nil); err == nil {
			t.Error("nil task must be rejected")
		}
	})

	t.Run("should reject when the lane is saturated", func(t *testing.T) {
		// Arrange: pool not started, so the lane buffer fills up.
		p := NewShardedPool(1, newTestLogger())
		task := func(ctx context.Context) error { return nil }
		var err error
		for i := 0; i < 64; i++ {
			if err = p.Submit(1, task); err != nil {
				break
			}
		}

		// Assert
		if err == nil {
			t.Error("saturated lane must reject submissions")
		}
	})
}
