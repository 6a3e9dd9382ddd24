package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/config"
	"telegram-horoscope-agent/internal/domain/ports/repository"
	"telegram-horoscope-agent/internal/usecase"
)

// Server exposes the payment webhook plus health, metrics and a small
// admin surface.
type Server struct {
	httpServer *http.Server
	logger     *zerolog.Logger
}

func NewServer(
	cfg config.WebConfig,
	stripeCfg config.StripeConfig,
	conv usecase.ConversationUseCase,
	ledger repository.PaymentRepository,
	logger *zerolog.Logger,
	dev bool,
) *Server {
	auth := NewAuthManager(cfg.AdminSecret, !dev, 30*time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/webhooks/stripe", stripeWebhookHandler(conv, stripeCfg.WebhookSecret, logger))

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", adminLoginHandler(auth, cfg.AdminSecret))
		r.With(auth.Guard).Get("/payments", adminPaymentsHandler(ledger))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("web server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
