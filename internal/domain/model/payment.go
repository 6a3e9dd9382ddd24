package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // checkout created; awaiting provider resolution
	PaymentStatusSucceeded PaymentStatus = "succeeded" // verified paid at provider
	PaymentStatusFailed    PaymentStatus = "failed"    // rejected or provider reported failure
	PaymentStatusExpired   PaymentStatus = "expired"   // checkout lapsed without payment
)

// Provider-imposed bounds on how long a checkout session may stay open.
// Requested windows outside this range are clamped, never rejected.
const (
	MinCheckoutWindow = 30 * time.Minute
	MaxCheckoutWindow = 24 * time.Hour
)

// ClampCheckoutWindow forces d into [MinCheckoutWindow, MaxCheckoutWindow].
func ClampCheckoutWindow(d time.Duration) time.Duration {
	if d < MinCheckoutWindow {
		return MinCheckoutWindow
	}
	if d > MaxCheckoutWindow {
		return MaxCheckoutWindow
	}
	return d
}

// PendingPayment is the short-lived record correlating an open checkout back
// to the sender and the sign they asked about. At most one exists per sender;
// creating a new one supersedes the previous record for that sender.
type PendingPayment struct {
	CheckoutRef string    `json:"checkout_ref"` // provider checkout session id, unique
	ClientRef   string    `json:"client_ref"`   // our ULID, attached to checkout metadata
	SenderID    int64     `json:"sender_id"`
	Sign        string    `json:"sign"`
	PayURL      string    `json:"pay_url"`
	Amount      int64     `json:"amount"` // minor units
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Payment is the durable ledger row behind a PendingPayment. It survives
// resolution and feeds the reconciler and the admin listing.
type Payment struct {
	ID          string        // UUID
	SenderID    int64         // telegram chat id
	Provider    string        // e.g. "stripe"
	CheckoutRef string        // provider checkout session id
	ClientRef   string        // our ULID
	Sign        string        // what the sender is paying for
	Amount      int64         // minor units, avoids float errors
	Currency    string        // ISO code, e.g. "usd"
	Status      PaymentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time // set when succeeded
	Description string     // human-readable description shown at checkout
}
