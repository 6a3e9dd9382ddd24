package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/domain"
	"telegram-horoscope-agent/internal/domain/ports/repository"
	"telegram-horoscope-agent/internal/infra/payment"
	"telegram-horoscope-agent/internal/usecase"
)

const maxWebhookBody = 64 << 10

// stripeEvent is the slice of a webhook event we act on.
type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// stripeWebhookHandler turns provider notifications into commit/reject
// resolutions. Unknown refs and duplicate deliveries are 200 OK no-ops so the
// provider stops retrying; internal failures are 500 so it retries later.
func stripeWebhookHandler(conv usecase.ConversationUseCase, webhookSecret string, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}

		sig := r.Header.Get("Stripe-Signature")
		if !payment.VerifyStripeWebhookSignature(webhookSecret, body, sig, time.Now(), payment.DefaultWebhookTolerance) {
			logger.Warn().Msg("webhook signature verification failed")
			http.Error(w, "bad signature", http.StatusBadRequest)
			return
		}

		var ev stripeEvent
		if err := json.Unmarshal(body, &ev); err != nil || ev.Data.Object.ID == "" {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		switch ev.Type {
		case "checkout.session.completed", "checkout.session.async_payment_succeeded":
			err = conv.HandleCommit(ctx, ev.Data.Object.ID)
		case "checkout.session.async_payment_failed":
			err = conv.HandleReject(ctx, ev.Data.Object.ID)
		case "checkout.session.expired":
			// Abandonment, not rejection: clean up without messaging anyone.
			err = conv.HandleExpire(ctx, ev.Data.Object.ID)
		default:
			// Event types we did not subscribe to; acknowledge and move on.
		}
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Str("checkout_ref", ev.Data.Object.ID).Msg("webhook handling failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func adminLoginHandler(auth *AuthManager, adminSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Secret string `json:"secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if adminSecret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(adminSecret)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := auth.Mint(w); err != nil {
			http.Error(w, "Failed to mint session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// adminPaymentsHandler returns the most recent ledger rows.
func adminPaymentsHandler(ledger repository.PaymentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ledger.ListRecent(r.Context(), 50)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				rows = nil
			} else {
				http.Error(w, "Failed to list payments", http.StatusInternalServerError)
				return
			}
		}

		type paymentView struct {
			ID          string     `json:"id"`
			SenderID    int64      `json:"sender_id"`
			Provider    string     `json:"provider"`
			CheckoutRef string     `json:"checkout_ref"`
			Sign        string     `json:"sign"`
			Amount      int64      `json:"amount"`
			Currency    string     `json:"currency"`
			Status      string     `json:"status"`
			CreatedAt   time.Time  `json:"created_at"`
			PaidAt      *time.Time `json:"paid_at,omitempty"`
		}
		out := make([]paymentView, 0, len(rows))
		for _, p := range rows {
			out = append(out, paymentView{
				ID:          p.ID,
				SenderID:    p.SenderID,
				Provider:    p.Provider,
				CheckoutRef: p.CheckoutRef,
				Sign:        p.Sign,
				Amount:      p.Amount,
				Currency:    p.Currency,
				Status:      string(p.Status),
				CreatedAt:   p.CreatedAt,
				PaidAt:      p.PaidAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}
