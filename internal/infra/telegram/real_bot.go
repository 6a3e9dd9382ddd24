package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/config"
	"telegram-horoscope-agent/internal/domain/ports/adapter"
	red "telegram-horoscope-agent/internal/infra/redis"
	"telegram-horoscope-agent/internal/infra/metrics"
	"telegram-horoscope-agent/internal/infra/worker"
)

// MessageHandler is what the bot feeds inbound messages into. Defined here so
// the transport does not import the usecase layer.
type MessageHandler interface {
	HandleMessage(ctx context.Context, senderID int64, text string) error
}

// BotAdapter is the full transport surface the host wires against, satisfied
// by both the real Telegram adapter and the dev noop.
type BotAdapter interface {
	adapter.ChatTransportAdapter
	SetHandler(h MessageHandler)
	StartPolling(ctx context.Context) error
	StopPolling()
}

var _ BotAdapter = (*RealBotAdapter)(nil)
var _ adapter.ChatTransportAdapter = (*RealBotAdapter)(nil)

// RealBotAdapter implements the chat transport on Telegram long polling.
// Updates are dispatched onto a sharded pool keyed by chat id, so one
// sender's messages are handled strictly in order.
type RealBotAdapter struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	limiter *red.RateLimiter
	pool    *worker.ShardedPool
	handler MessageHandler
	logger  *zerolog.Logger

	cancelPolling context.CancelFunc
}

func NewRealBotAdapter(cfg *config.BotConfig, limiter *red.RateLimiter, pool *worker.ShardedPool, logger *zerolog.Logger) (*RealBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	return &RealBotAdapter{
		bot:     bot,
		cfg:     cfg,
		limiter: limiter,
		pool:    pool,
		logger:  logger,
	}, nil
}

// SetHandler attaches the orchestrator. Must be called before StartPolling.
func (r *RealBotAdapter) SetHandler(h MessageHandler) { r.handler = h }

// StartPolling begins polling Telegram for updates. It runs until ctx is
// canceled.
func (r *RealBotAdapter) StartPolling(ctx context.Context) error {
	if r.handler == nil {
		return errors.New("no message handler attached")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			chatID := update.Message.Chat.ID
			text := update.Message.Text
			if err := r.pool.Submit(chatID, func(ctx context.Context) error {
				return r.handleInbound(ctx, chatID, text)
			}); err != nil {
				r.logger.Warn().Int64("sender_id", chatID).Err(err).Msg("dropping update")
			}
		}
	}
}

// StopPolling stops the polling loop gracefully.
func (r *RealBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealBotAdapter) handleInbound(ctx context.Context, chatID int64, text string) error {
	if r.limiter != nil {
		ok, err := r.limiter.Allow(ctx, red.SenderMessageKey(chatID), r.cfg.RateLimit, r.cfg.RateWindow)
		if err != nil {
			r.logger.Error().Err(err).Msg("rate limiter unavailable; letting message through")
		} else if !ok {
			metrics.IncRateLimited()
			return nil
		}
	}
	return r.handler.HandleMessage(ctx, chatID, text)
}

// SendMessage implements adapter.ChatTransportAdapter.
func (r *RealBotAdapter) SendMessage(ctx context.Context, senderID int64, text string) error {
	msg := tgbotapi.NewMessage(senderID, text)
	msg.DisableWebPagePreview = true
	_, err := r.bot.Send(msg)
	return err
}
