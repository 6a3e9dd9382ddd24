package repository

import (
	"context"

	"telegram-horoscope-agent/internal/domain/model"
)

// PendingPaymentRepository holds the at-most-one open checkout per sender.
//
// Save supersedes any previous pending payment for the same sender: the old
// checkout ref resolves to domain.ErrNotFound afterwards. Claim atomically
// removes and returns the record for a ref, so resolving the same ref twice
// succeeds exactly once; the second call gets domain.ErrNotFound.
type PendingPaymentRepository interface {
	Save(ctx context.Context, p *model.PendingPayment) error
	// Find looks up by checkout ref without consuming the record.
	Find(ctx context.Context, checkoutRef string) (*model.PendingPayment, error)
	// Claim consumes the record for checkoutRef.
	Claim(ctx context.Context, checkoutRef string) (*model.PendingPayment, error)
	// FindBySender returns the sender's open checkout, if any.
	FindBySender(ctx context.Context, senderID int64) (*model.PendingPayment, error)
}
