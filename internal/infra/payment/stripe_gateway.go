package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway implements PaymentGateway against the Stripe Checkout API
// using direct HTTP calls (form-encoded, as the API expects).
type StripeGateway struct {
	secretKey  string
	successURL string
	baseURL    string
	client     *http.Client
}

func NewStripeGateway(secretKey, successURL string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is empty")
	}
	return &StripeGateway{
		secretKey:  secretKey,
		successURL: successURL,
		baseURL:    "https://api.stripe.com/v1",
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

// stripeSession is the subset of the Checkout Session object we read back.
type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	ClientSecret  string `json:"client_secret"`
	Status        string `json:"status"`         // open | complete | expired
	PaymentStatus string `json:"payment_status"` // paid | unpaid | no_payment_required
	ExpiresAt     int64  `json:"expires_at"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, p adapter.CheckoutParams) (*adapter.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", g.successURL)
	form.Set("expires_at", strconv.FormatInt(p.ExpiresAt.Unix(), 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.Description)
	form.Set("client_reference_id", p.ClientRef)
	form.Set("metadata[client_ref]", p.ClientRef)

	var sess stripeSession
	if err := g.call(ctx, http.MethodPost, "/checkout/sessions", form, &sess); err != nil {
		return nil, err
	}
	return &adapter.CheckoutSession{
		Ref:          sess.ID,
		PayURL:       sess.URL,
		ClientSecret: sess.ClientSecret,
		ExpiresAt:    time.Unix(sess.ExpiresAt, 0),
	}, nil
}

func (g *StripeGateway) GetCheckoutStatus(ctx context.Context, ref string) (adapter.CheckoutStatus, error) {
	var sess stripeSession
	if err := g.call(ctx, http.MethodGet, "/checkout/sessions/"+url.PathEscape(ref), nil, &sess); err != nil {
		return "", err
	}
	switch {
	case sess.PaymentStatus == "paid":
		return adapter.CheckoutPaid, nil
	case sess.Status == "expired":
		return adapter.CheckoutExpired, nil
	default:
		return adapter.CheckoutUnpaid, nil
	}
}

func (g *StripeGateway) call(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		var se stripeError
		if json.Unmarshal(raw, &se) == nil && se.Error.Message != "" {
			return fmt.Errorf("stripe error: %s (%s)", se.Error.Message, se.Error.Code)
		}
		return fmt.Errorf("stripe http %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(raw))
	}
	return nil
}
