package ai

import (
	"context"
	"fmt"

	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAI)(nil)

// NoopAI is a stand-in for dev mode and demos; it never leaves the process.
type NoopAI struct{}

func NewNoopAI() *NoopAI { return &NoopAI{} }

func (n *NoopAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	return fmt.Sprintf("(dev reply to: %s)", messages[len(messages)-1].Content), nil
}

func (n *NoopAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total, nil
}
