//go:build !integration

package sched

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/domain"
	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeConv struct {
	commits []string
	rejects []string
	expires []string
}

func (f *fakeConv) HandleMessage(ctx context.Context, senderID int64, text string) error { return nil }
func (f *fakeConv) HandleCommit(ctx context.Context, ref string) error {
	f.commits = append(f.commits, ref)
	return nil
}
func (f *fakeConv) HandleReject(ctx context.Context, ref string) error {
	f.rejects = append(f.rejects, ref)
	return nil
}
func (f *fakeConv) HandleExpire(ctx context.Context, ref string) error {
	f.expires = append(f.expires, ref)
	return nil
}

type fakeLedger struct {
	pending []*model.Payment
	updates map[string]model.PaymentStatus
}

func newFakeLedger(rows ...*model.Payment) *fakeLedger {
	return &fakeLedger{pending: rows, updates: make(map[string]model.PaymentStatus)}
}

func (f *fakeLedger) Save(ctx context.Context, p *model.Payment) error { return nil }
func (f *fakeLedger) FindByCheckoutRef(ctx context.Context, ref string) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeLedger) UpdateStatusIfPending(ctx context.Context, ref string, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	f.updates[ref] = status
	return true, nil
}
func (f *fakeLedger) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error) {
	return f.pending, nil
}
func (f *fakeLedger) ListRecent(ctx context.Context, limit int) ([]*model.Payment, error) {
	return nil, nil
}

type fakeGateway struct {
	statuses map[string]adapter.CheckoutStatus
}

func (f *fakeGateway) Name() string { return "fake" }
func (f *fakeGateway) CreateCheckout(ctx context.Context, p adapter.CheckoutParams) (*adapter.CheckoutSession, error) {
	return nil, nil
}
func (f *fakeGateway) GetCheckoutStatus(ctx context.Context, ref string) (adapter.CheckoutStatus, error) {
	return f.statuses[ref], nil
}

func pendingRow(ref string) *model.Payment {
	return &model.Payment{
		ID:          "id-" + ref,
		CheckoutRef: ref,
		Status:      model.PaymentStatusPending,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
}

func TestPaymentReconciler(t *testing.T) {
	ctx := context.Background()

	t.Run("should re-run the commit path for paid checkouts", func(t *testing.T) {
		// Arrange
		conv := &fakeConv{}
		ledger := newFakeLedger(pendingRow("cs_paid"))
		gw := &fakeGateway{statuses: map[string]adapter.CheckoutStatus{"cs_paid": adapter.CheckoutPaid}}
		w := NewPaymentReconciler(conv, ledger, gw, time.Minute, 10*time.Minute, newTestLogger())

		// Act
		w.tick(ctx)

		// Assert
		if len(conv.commits) != 1 || conv.commits[0] != "cs_paid" {
			t.Errorf("expected a commit for cs_paid, got %v", conv.commits)
		}
		if ledger.updates["cs_paid"] != model.PaymentStatusSucceeded {
			t.Errorf("ledger should be finalized, got %v", ledger.updates)
		}
	})

	t.Run("should silently expire abandoned checkouts", func(t *testing.T) {
		// Arrange
		conv := &fakeConv{}
		ledger := newFakeLedger(pendingRow("cs_gone"))
		gw := &fakeGateway{statuses: map[string]adapter.CheckoutStatus{"cs_gone": adapter.CheckoutExpired}}
		w := NewPaymentReconciler(conv, ledger, gw, time.Minute, 10*time.Minute, newTestLogger())

		// Act
		w.tick(ctx)

		// Assert
		if len(conv.commits)+len(conv.rejects) != 0 {
			t.Errorf("abandoned checkouts must not message anyone: %v %v", conv.commits, conv.rejects)
		}
		if len(conv.expires) != 1 || conv.expires[0] != "cs_gone" {
			t.Errorf("expected the silent expiry path, got %v", conv.expires)
		}
		if ledger.updates["cs_gone"] != model.PaymentStatusExpired {
			t.Errorf("ledger should record expiry, got %v", ledger.updates)
		}
	})

	t.Run("should leave open checkouts alone", func(t *testing.T) {
		// Arrange
		conv := &fakeConv{}
		ledger := newFakeLedger(pendingRow("cs_open"))
		gw := &fakeGateway{statuses: map[string]adapter.CheckoutStatus{"cs_open": adapter.CheckoutUnpaid}}
		w := NewPaymentReconciler(conv, ledger, gw, time.Minute, 10*time.Minute, newTestLogger())

		// Act
		w.tick(ctx)

		// Assert
		if len(conv.commits)+len(conv.rejects) != 0 {
			t.Errorf("open checkouts must not trigger resolutions")
		}
		if len(ledger.updates) != 0 {
			t.Errorf("open checkouts must not touch the ledger, got %v", ledger.updates)
		}
	})
}
