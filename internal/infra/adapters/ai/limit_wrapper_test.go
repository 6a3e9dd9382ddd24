//go:build !integration

package ai

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

type countingAI struct {
	inFlight int32
	max      int32
	block    chan struct{}
}

func (c *countingAI) Chat(ctx context.Context, model string, msgs []adapter.Message) (string, error) {
	n := atomic.AddInt32(&c.inFlight, 1)
	for {
		cur := atomic.LoadInt32(&c.max)
		if n <= cur || atomic.CompareAndSwapInt32(&c.max, cur, n) {
			break
		}
	}
	<-c.block
	atomic.AddInt32(&c.inFlight, -1)
	return "ok", nil
}

func (c *countingAI) CountTokens(ctx context.Context, model string, msgs []adapter.Message) (int, error) {
	return 0, nil
}

func TestLimitedAI(t *testing.T) {
	t.Run("should cap concurrent calls", func(t *testing.T) {
		// Arrange
		inner := &countingAI{block: make(chan struct{})}
		limited := NewLimitedAI(inner, 2)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = limited.Chat(context.Background(), "m", nil)
			}()
		}

		// Act
		close(inner.block)
		wg.Wait()

		// Assert
		if got := atomic.LoadInt32(&inner.max); got > 2 {
			t.Errorf("observed %d concurrent calls, limit is 2", got)
		}
	})

	t.Run("should pass through when the limit is disabled", func(t *testing.T) {
		inner := &countingAI{block: make(chan struct{})}
		if got := NewLimitedAI(inner, 0); got != adapter.AIServiceAdapter(inner) {
			t.Error("zero limit should return the inner adapter unchanged")
		}
	})
}
