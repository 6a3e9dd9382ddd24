package ai

import (
	"context"

	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIServiceAdapter = (*limitedAI)(nil)

type limitedAI struct {
	inner adapter.AIServiceAdapter
	sem   chan struct{}
}

// NewLimitedAI caps concurrent calls into the underlying provider.
func NewLimitedAI(inner adapter.AIServiceAdapter, maxConcurrent int) adapter.AIServiceAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.Chat(ctx, model, messages)
}

func (l *limitedAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.CountTokens(ctx, model, messages)
}
