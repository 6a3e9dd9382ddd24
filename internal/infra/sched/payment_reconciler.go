package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/adapter"
	"telegram-horoscope-agent/internal/domain/ports/repository"
	"telegram-horoscope-agent/internal/usecase"
)

// PaymentReconciler periodically scans the ledger for stale pending checkouts
// and asks the provider what happened to them. This covers webhooks that were
// lost or arrived while the process was down.
type PaymentReconciler struct {
	conv       usecase.ConversationUseCase
	ledger     repository.PaymentRepository
	gateway    adapter.PaymentGateway
	logger     *zerolog.Logger
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending checkout must be to retry
}

func NewPaymentReconciler(
	conv usecase.ConversationUseCase,
	ledger repository.PaymentRepository,
	gateway adapter.PaymentGateway,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PaymentReconciler{
		conv:       conv,
		ledger:     ledger,
		gateway:    gateway,
		logger:     logger,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	rows, err := w.ledger.ListPendingOlderThan(ctx, cutoff, 200)
	if err != nil {
		w.logger.Error().Err(err).Msg("payment-reconciler: list pending failed")
		return
	}
	for _, row := range rows {
		w.reconcile(ctx, row)
	}
}

func (w *PaymentReconciler) reconcile(ctx context.Context, row *model.Payment) {
	status, err := w.gateway.GetCheckoutStatus(ctx, row.CheckoutRef)
	if err != nil {
		w.logger.Warn().Err(err).Str("checkout_ref", row.CheckoutRef).Msg("payment-reconciler: status poll failed")
		return
	}

	switch status {
	case adapter.CheckoutPaid:
		// Missed commit: run the normal commit path so the sender still gets
		// their horoscope.
		if err := w.conv.HandleCommit(ctx, row.CheckoutRef); err != nil {
			w.logger.Error().Err(err).Str("checkout_ref", row.CheckoutRef).Msg("payment-reconciler: commit failed")
			return
		}
		// If the pending record already aged out of Redis the commit was a
		// no-op; finalize the ledger so the row stops re-scanning. The gated
		// action is unrecoverable at that point.
		now := time.Now()
		if ok, err := w.ledger.UpdateStatusIfPending(ctx, row.CheckoutRef, model.PaymentStatusSucceeded, &now); err == nil && ok {
			w.logger.Warn().Str("checkout_ref", row.CheckoutRef).Msg("payment-reconciler: paid checkout had no pending record")
		}

	case adapter.CheckoutExpired:
		// An abandoned checkout is not a rejection; nobody gets messaged.
		if err := w.conv.HandleExpire(ctx, row.CheckoutRef); err != nil {
			w.logger.Error().Err(err).Str("checkout_ref", row.CheckoutRef).Msg("payment-reconciler: expire failed")
			return
		}
		// The pending record may have aged out of Redis already; finalize the
		// ledger directly so the row stops re-scanning.
		if _, err := w.ledger.UpdateStatusIfPending(ctx, row.CheckoutRef, model.PaymentStatusExpired, nil); err != nil {
			w.logger.Error().Err(err).Str("checkout_ref", row.CheckoutRef).Msg("payment-reconciler: ledger update failed")
		}

	default:
		// Still open; leave it until it either pays or expires.
	}
}
