package telegram

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var _ BotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs outbound messages instead of talking to Telegram. It
// backs dev mode when no bot token is configured; inbound traffic is fed
// through Inject instead of polling.
type NoopBotAdapter struct {
	mu      sync.Mutex
	sent    []string
	handler MessageHandler
	logger  *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	return &NoopBotAdapter{logger: logger}
}

// SetHandler attaches the orchestrator, mirroring the real adapter.
func (n *NoopBotAdapter) SetHandler(h MessageHandler) { n.handler = h }

// StartPolling blocks until ctx is canceled; there is nothing to poll.
func (n *NoopBotAdapter) StartPolling(ctx context.Context) error {
	if n.handler == nil {
		return errors.New("no message handler attached")
	}
	<-ctx.Done()
	return nil
}

func (n *NoopBotAdapter) StopPolling() {}

// Inject feeds one inbound message through the attached handler, standing in
// for a Telegram update.
func (n *NoopBotAdapter) Inject(ctx context.Context, senderID int64, text string) error {
	if n.handler == nil {
		return errors.New("no message handler attached")
	}
	return n.handler.HandleMessage(ctx, senderID, text)
}

func (n *NoopBotAdapter) SendMessage(ctx context.Context, senderID int64, text string) error {
	n.mu.Lock()
	n.sent = append(n.sent, text)
	n.mu.Unlock()
	n.logger.Info().Int64("sender_id", senderID).Str("text", text).Msg("noop bot send")
	return nil
}

func (n *NoopBotAdapter) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	copy(out, n.sent)
	return out
}
