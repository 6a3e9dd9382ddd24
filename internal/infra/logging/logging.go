// File: internal/infra/logging/logging.go
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"telegram-horoscope-agent/internal/config"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger configured from config.
// Supports "trace" | "debug" | "info" | "warn" | "error" levels
// and "json" | "console" formats. Sampling can be enabled to reduce noise in prod.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var base zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" || dev {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		base = zerolog.New(out).With().Timestamp().Logger()
	} else {
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if cfg.Sampling && !dev {
		// Simple sampling: keep first 100, then 1 every 100 thereafter.
		sampled := base.Sample(&zerolog.BasicSampler{N: 100})
		return &sampled
	}
	return &base
}

type ctxKey string

const (
	ctxTraceID  ctxKey = "trace_id"
	ctxSenderID ctxKey = "sender_id"
	ctxRef      ctxKey = "checkout_ref"
)

// With attaches common context fields such as trace_id, sender_id, checkout_ref.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	l := base.With()
	if v := ctx.Value(ctxTraceID); v != nil {
		l = l.Str("trace_id", v.(string))
	}
	if v := ctx.Value(ctxSenderID); v != nil {
		l = l.Int64("sender_id", v.(int64))
	}
	if v := ctx.Value(ctxRef); v != nil {
		l = l.Str("checkout_ref", v.(string))
	}
	logger := l.Logger()
	return &logger
}

// TraceDuration logs start and end with elapsed duration at TRACE level.
// Usage: defer logging.TraceDuration(logger, "ConversationUC.HandleMessage")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		elapsed := time.Since(start)
		logger.Trace().Str("method", name).Dur("duration", elapsed).Msg("finish")
	}
}

// Helpers to put IDs into context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}
func WithSenderID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxSenderID, id)
}
func WithCheckoutRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, ctxRef, ref)
}
