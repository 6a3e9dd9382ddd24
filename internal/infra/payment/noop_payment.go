package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway fakes a provider for dev mode: every checkout it mints reports
// paid on the first status poll.
type NoopGateway struct {
	mu   sync.Mutex
	refs map[string]struct{}
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{refs: make(map[string]struct{})}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateCheckout(ctx context.Context, p adapter.CheckoutParams) (*adapter.CheckoutSession, error) {
	ref := "cs_test_" + uuid.NewString()
	g.mu.Lock()
	g.refs[ref] = struct{}{}
	g.mu.Unlock()
	return &adapter.CheckoutSession{
		Ref:       ref,
		PayURL:    fmt.Sprintf("https://checkout.local/%s", ref),
		ExpiresAt: p.ExpiresAt,
	}, nil
}

func (g *NoopGateway) GetCheckoutStatus(ctx context.Context, ref string) (adapter.CheckoutStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.refs[ref]; ok {
		return adapter.CheckoutPaid, nil
	}
	return adapter.CheckoutExpired, nil
}
