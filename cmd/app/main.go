// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-horoscope-agent/internal/config"
	"telegram-horoscope-agent/internal/domain/ports/adapter"
	aiAdapters "telegram-horoscope-agent/internal/infra/adapters/ai"
	pg "telegram-horoscope-agent/internal/infra/db/postgres"
	"telegram-horoscope-agent/internal/infra/logging"
	"telegram-horoscope-agent/internal/infra/metrics"
	pay "telegram-horoscope-agent/internal/infra/payment"
	red "telegram-horoscope-agent/internal/infra/redis"
	"telegram-horoscope-agent/internal/infra/sched"
	tele "telegram-horoscope-agent/internal/infra/telegram"
	"telegram-horoscope-agent/internal/infra/web"
	"telegram-horoscope-agent/internal/infra/worker"
	"telegram-horoscope-agent/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	stateRepo := red.NewStateRepo(redisClient, logger)
	pendingRepo := red.NewPendingPaymentRepo(redisClient, logger)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	ledger := pg.NewPaymentRepo(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Payment.Stripe.SecretKey == "" {
		gateway = pay.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop (dev)")
	} else {
		gateway, err = pay.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.SuccessURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway")
		}
	}

	// ---- AI adapter (OpenAI -> Gemini -> noop in dev) ----
	var ai adapter.AIServiceAdapter
	switch {
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAI()
		logger.Warn().Msg("AI adapter: noop (dev)")
	default:
		logger.Fatal().Msg("no AI provider configured: set ai.openai_key or ai.gemini_key")
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	// ---- Transport ----
	pool2 := worker.NewShardedPool(cfg.Bot.Workers, logger)
	var bot tele.BotAdapter
	if cfg.Runtime.Dev && cfg.Bot.Token == "" {
		bot = tele.NewNoopBotAdapter(logger)
		logger.Warn().Msg("chat transport: noop (dev)")
	} else {
		bot, err = tele.NewRealBotAdapter(&cfg.Bot, rateLimiter, pool2, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
	}

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentSessionUseCase(
		pendingRepo, ledger, gateway,
		cfg.Payment.Stripe.AmountCents, cfg.Payment.Stripe.Currency, cfg.Payment.Stripe.CheckoutExpiry,
		logger,
	)
	convUC := usecase.NewConversationUseCase(stateRepo, pendingRepo, paymentUC, bot, ai, cfg.AI.DefaultModel, logger)
	bot.SetHandler(convUC)

	// ---- Background workers ----
	pool2.Start(ctx)
	go func() {
		if err := bot.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	reconciler := sched.NewPaymentReconciler(convUC, ledger, gateway,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- Web (webhooks, metrics, admin) ----
	srv := web.NewServer(cfg.Web, cfg.Payment.Stripe, convUC, ledger, logger, cfg.Runtime.Dev)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("web server stopped")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	cancel()
	bot.StopPolling()
	pool2.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("web shutdown")
	}
}
