// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token   string `yaml:"token"`
	Workers int    `yaml:"workers"` // update-processing lanes
	// RateLimit is max inbound messages per sender per window.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
}

type StripeConfig struct {
	SecretKey      string        `yaml:"secret_key"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	SuccessURL     string        `yaml:"success_url"`
	Currency       string        `yaml:"currency"`
	AmountCents    int64         `yaml:"amount_cents"`
	CheckoutExpiry time.Duration `yaml:"checkout_expiry"` // clamped to [30m, 24h]
}

type PaymentConfig struct {
	Stripe StripeConfig `yaml:"stripe"`
}

type WebConfig struct {
	Port        int    `yaml:"port"`
	AdminSecret string `yaml:"admin_secret"` // HMAC secret for admin session cookies
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	Payment    PaymentConfig    `yaml:"payment"`
	Web        WebConfig        `yaml:"web"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.RateLimit <= 0 {
		cfg.Bot.RateLimit = 20
	}
	if cfg.Bot.RateWindow <= 0 {
		cfg.Bot.RateWindow = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Payment.Stripe.Currency == "" {
		cfg.Payment.Stripe.Currency = "usd"
	}
	if cfg.Payment.Stripe.AmountCents <= 0 {
		cfg.Payment.Stripe.AmountCents = 100
	}
	if cfg.Payment.Stripe.CheckoutExpiry <= 0 {
		cfg.Payment.Stripe.CheckoutExpiry = 30 * time.Minute
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}

	// Minimal validation. Dev mode can run without a bot token (noop
	// transport) or a stripe key (noop gateway).
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.Stripe.SecretKey == "" && !dev {
		return nil, errors.New("payment.stripe.secret_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
