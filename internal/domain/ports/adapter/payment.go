package adapter

import (
	"context"
	"time"
)

// CheckoutStatus is the provider-reported state of a checkout session.
type CheckoutStatus string

const (
	CheckoutPaid    CheckoutStatus = "paid"
	CheckoutUnpaid  CheckoutStatus = "unpaid"
	CheckoutExpired CheckoutStatus = "expired"
)

// CheckoutSession is what the provider hands back when a checkout is minted.
type CheckoutSession struct {
	Ref          string // provider session id, unique per attempt
	PayURL       string // hosted checkout URL the user completes payment through
	ClientSecret string // for embedded UIs; may be empty
	ExpiresAt    time.Time
}

// CheckoutParams describes the payment we ask the provider to collect.
type CheckoutParams struct {
	Amount      int64  // minor units
	Currency    string // e.g. "usd"
	Description string
	ClientRef   string    // our reference, echoed back in webhooks via metadata
	ExpiresAt   time.Time // caller clamps to the provider's allowed window
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreateCheckout mints a checkout session at the provider.
	CreateCheckout(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)

	// GetCheckoutStatus asks the provider whether ref was actually paid.
	// Push notifications are never trusted without this call.
	GetCheckoutStatus(ctx context.Context, ref string) (CheckoutStatus, error)
}
