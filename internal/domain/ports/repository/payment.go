package repository

import (
	"context"
	"time"

	"telegram-horoscope-agent/internal/domain/model"
)

// PaymentRepository is the durable ledger of every checkout ever created.
// Unlike PendingPaymentRepository this is append-mostly history: rows are
// never deleted, only moved out of pending.
type PaymentRepository interface {
	Save(ctx context.Context, p *model.Payment) error
	FindByCheckoutRef(ctx context.Context, checkoutRef string) (*model.Payment, error)
	// UpdateStatusIfPending flips status only when the row is still pending.
	// Returns false when another resolution got there first.
	UpdateStatusIfPending(ctx context.Context, checkoutRef string, status model.PaymentStatus, paidAt *time.Time) (bool, error)
	// ListPendingOlderThan feeds the reconciler.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Payment, error)
}
