// File: internal/usecase/payment_session_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/domain"
	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/adapter"
	"telegram-horoscope-agent/internal/domain/ports/repository"
	"telegram-horoscope-agent/internal/infra/metrics"
)

// Compile-time check
var _ PaymentSessionUseCase = (*paymentSessionUC)(nil)

// PaymentSessionUseCase owns the pending-payment lifecycle: mint a checkout,
// hold the correlation record, resolve commit/reject notifications.
type PaymentSessionUseCase interface {
	// CreateCheckout mints a checkout for sender and supersedes any open one.
	CreateCheckout(ctx context.Context, senderID int64, sign string) (*model.PendingPayment, error)
	// ResolveCommit finalizes a provider commit notification. The provider is
	// polled for the real payment status before anything is released:
	//   - paid      -> record claimed, (record, nil)
	//   - unpaid    -> record kept, (record, domain.ErrPaymentUnverified)
	//   - expired   -> record claimed, (record, domain.ErrCheckoutExpired)
	//   - unknown/duplicate ref -> (nil, domain.ErrNotFound)
	ResolveCommit(ctx context.Context, checkoutRef string) (*model.PendingPayment, error)
	// ResolveReject clears the pending record for a rejected payment.
	// Unknown or already-resolved refs return domain.ErrNotFound.
	ResolveReject(ctx context.Context, checkoutRef string) (*model.PendingPayment, error)
	// ResolveExpire clears the pending record for a checkout that lapsed
	// without payment; the ledger rows it as expired, not failed. Unknown or
	// already-resolved refs return domain.ErrNotFound.
	ResolveExpire(ctx context.Context, checkoutRef string) (*model.PendingPayment, error)
}

type paymentSessionUC struct {
	pendings repository.PendingPaymentRepository
	ledger   repository.PaymentRepository
	gateway  adapter.PaymentGateway
	logger   *zerolog.Logger

	amount         int64
	currency       string
	checkoutExpiry time.Duration
	now            func() time.Time
}

func NewPaymentSessionUseCase(
	pendings repository.PendingPaymentRepository,
	ledger repository.PaymentRepository,
	gateway adapter.PaymentGateway,
	amount int64,
	currency string,
	checkoutExpiry time.Duration,
	logger *zerolog.Logger,
) *paymentSessionUC {
	return &paymentSessionUC{
		pendings:       pendings,
		ledger:         ledger,
		gateway:        gateway,
		logger:         logger,
		amount:         amount,
		currency:       currency,
		checkoutExpiry: model.ClampCheckoutWindow(checkoutExpiry),
		now:            time.Now,
	}
}

func (u *paymentSessionUC) CreateCheckout(ctx context.Context, senderID int64, sign string) (*model.PendingPayment, error) {
	now := u.now()
	clientRef := ulid.Make().String()
	desc := fmt.Sprintf("Daily horoscope for %s", sign)

	sess, err := u.gateway.CreateCheckout(ctx, adapter.CheckoutParams{
		Amount:      u.amount,
		Currency:    u.currency,
		Description: desc,
		ClientRef:   clientRef,
		ExpiresAt:   now.Add(u.checkoutExpiry),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	expiresAt := sess.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(u.checkoutExpiry)
	}
	p := &model.PendingPayment{
		CheckoutRef: sess.Ref,
		ClientRef:   clientRef,
		SenderID:    senderID,
		Sign:        sign,
		PayURL:      sess.PayURL,
		Amount:      u.amount,
		Currency:    u.currency,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := u.pendings.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save pending payment: %w", err)
	}

	row := &model.Payment{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		Provider:    u.gateway.Name(),
		CheckoutRef: sess.Ref,
		ClientRef:   clientRef,
		Sign:        sign,
		Amount:      u.amount,
		Currency:    u.currency,
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Description: desc,
	}
	if err := u.ledger.Save(ctx, row); err != nil {
		// The ledger is an audit trail; a failed insert must not block the flow.
		u.logger.Error().Err(err).Str("checkout_ref", sess.Ref).Msg("ledger save failed")
	}

	metrics.IncCheckout(u.gateway.Name())
	u.logger.Info().Int64("sender_id", senderID).Str("checkout_ref", sess.Ref).Str("sign", sign).Msg("checkout created")
	return p, nil
}

func (u *paymentSessionUC) ResolveCommit(ctx context.Context, checkoutRef string) (*model.PendingPayment, error) {
	p, err := u.pendings.Find(ctx, checkoutRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncResolution("unknown_ref")
			u.logger.Debug().Str("checkout_ref", checkoutRef).Msg("commit for unknown or already-resolved ref")
		}
		return nil, err
	}

	// Never trust the push alone; ask the provider what actually happened.
	status, err := u.gateway.GetCheckoutStatus(ctx, checkoutRef)
	if err != nil {
		return nil, fmt.Errorf("verify checkout: %w", err)
	}

	switch status {
	case adapter.CheckoutPaid:
		claimed, err := u.pendings.Claim(ctx, checkoutRef)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Lost the race against a concurrent resolution; duplicate delivery.
				metrics.IncResolution("unknown_ref")
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		now := u.now()
		if _, err := u.ledger.UpdateStatusIfPending(ctx, checkoutRef, model.PaymentStatusSucceeded, &now); err != nil {
			u.logger.Error().Err(err).Str("checkout_ref", checkoutRef).Msg("ledger update failed")
		}
		metrics.IncResolution("committed")
		metrics.AddRevenue(claimed.Currency, claimed.Amount)
		u.logger.Info().Int64("sender_id", claimed.SenderID).Str("checkout_ref", checkoutRef).Msg("payment committed")
		return claimed, nil

	case adapter.CheckoutExpired:
		claimed, err := u.pendings.Claim(ctx, checkoutRef)
		if err != nil {
			return nil, err
		}
		if _, err := u.ledger.UpdateStatusIfPending(ctx, checkoutRef, model.PaymentStatusExpired, nil); err != nil {
			u.logger.Error().Err(err).Str("checkout_ref", checkoutRef).Msg("ledger update failed")
		}
		metrics.IncResolution("expired")
		return claimed, domain.ErrCheckoutExpired

	default:
		// Keep the pending record: the user may still finish the checkout.
		metrics.IncResolution("unverified")
		u.logger.Warn().Str("checkout_ref", checkoutRef).Str("status", string(status)).Msg("commit received but provider reports unpaid")
		return p, domain.ErrPaymentUnverified
	}
}

func (u *paymentSessionUC) ResolveReject(ctx context.Context, checkoutRef string) (*model.PendingPayment, error) {
	claimed, err := u.pendings.Claim(ctx, checkoutRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncResolution("unknown_ref")
			u.logger.Debug().Str("checkout_ref", checkoutRef).Msg("reject for unknown or already-resolved ref")
		}
		return nil, err
	}
	if _, err := u.ledger.UpdateStatusIfPending(ctx, checkoutRef, model.PaymentStatusFailed, nil); err != nil {
		u.logger.Error().Err(err).Str("checkout_ref", checkoutRef).Msg("ledger update failed")
	}
	metrics.IncResolution("rejected")
	u.logger.Info().Int64("sender_id", claimed.SenderID).Str("checkout_ref", checkoutRef).Msg("payment rejected")
	return claimed, nil
}

func (u *paymentSessionUC) ResolveExpire(ctx context.Context, checkoutRef string) (*model.PendingPayment, error) {
	claimed, err := u.pendings.Claim(ctx, checkoutRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.logger.Debug().Str("checkout_ref", checkoutRef).Msg("expiry for unknown or already-resolved ref")
		}
		return nil, err
	}
	if _, err := u.ledger.UpdateStatusIfPending(ctx, checkoutRef, model.PaymentStatusExpired, nil); err != nil {
		u.logger.Error().Err(err).Str("checkout_ref", checkoutRef).Msg("ledger update failed")
	}
	metrics.IncResolution("expired")
	u.logger.Info().Int64("sender_id", claimed.SenderID).Str("checkout_ref", checkoutRef).Msg("checkout expired")
	return claimed, nil
}
