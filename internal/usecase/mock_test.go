//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/domain"
	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/adapter"
	"telegram-horoscope-agent/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

// =============================
// Repositories
// =============================

// ---- Mock StateRepository ----

type MockStateRepo struct {
	mu     sync.Mutex
	states map[int64]*model.ConversationState

	GetFunc func(ctx context.Context, senderID int64) (*model.ConversationState, error)
	SetFunc func(ctx context.Context, senderID int64, st *model.ConversationState) error
}

var _ repository.StateRepository = (*MockStateRepo)(nil)

func NewMockStateRepo() *MockStateRepo {
	return &MockStateRepo{states: make(map[int64]*model.ConversationState)}
}

func (m *MockStateRepo) Set(ctx context.Context, senderID int64, st *model.ConversationState) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, senderID, st)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.states[senderID] = &cp
	return nil
}

func (m *MockStateRepo) Get(ctx context.Context, senderID int64) (*model.ConversationState, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, senderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[senderID]
	if !ok || st.Expired(time.Now()) {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *MockStateRepo) Clear(ctx context.Context, senderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, senderID)
	return nil
}

// ---- Mock PendingPaymentRepository ----

type MockPendingRepo struct {
	mu       sync.Mutex
	byRef    map[string]*model.PendingPayment
	bySender map[int64]string
}

var _ repository.PendingPaymentRepository = (*MockPendingRepo)(nil)

func NewMockPendingRepo() *MockPendingRepo {
	return &MockPendingRepo{
		byRef:    make(map[string]*model.PendingPayment),
		bySender: make(map[int64]string),
	}
}

func (m *MockPendingRepo) Save(ctx context.Context, p *model.PendingPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.bySender[p.SenderID]; ok && old != p.CheckoutRef {
		delete(m.byRef, old)
	}
	cp := *p
	m.byRef[p.CheckoutRef] = &cp
	m.bySender[p.SenderID] = p.CheckoutRef
	return nil
}

func (m *MockPendingRepo) Find(ctx context.Context, ref string) (*model.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPendingRepo) Claim(ctx context.Context, ref string) (*model.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.byRef, ref)
	if m.bySender[p.SenderID] == ref {
		delete(m.bySender, p.SenderID)
	}
	cp := *p
	return &cp, nil
}

func (m *MockPendingRepo) FindBySender(ctx context.Context, senderID int64) (*model.PendingPayment, error) {
	m.mu.Lock()
	ref, ok := m.bySender[senderID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.Find(ctx, ref)
}

// ---- Mock PaymentRepository (ledger) ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Payment // keyed by checkout ref

	SaveFunc func(ctx context.Context, p *model.Payment) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{rows: make(map[string]*model.Payment)}
}

func (m *MockPaymentRepo) Save(ctx context.Context, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.CheckoutRef] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByCheckoutRef(ctx context.Context, ref string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) UpdateStatusIfPending(ctx context.Context, ref string, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[ref]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.rows {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) && len(out) < limit {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) ListRecent(ctx context.Context, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.rows {
		if len(out) < limit {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu    sync.Mutex
	Calls struct {
		Create []adapter.CheckoutParams
		Status []string
	}

	CreateCheckoutFunc    func(ctx context.Context, p adapter.CheckoutParams) (*adapter.CheckoutSession, error)
	GetCheckoutStatusFunc func(ctx context.Context, ref string) (adapter.CheckoutStatus, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateCheckout(ctx context.Context, p adapter.CheckoutParams) (*adapter.CheckoutSession, error) {
	m.mu.Lock()
	m.Calls.Create = append(m.Calls.Create, p)
	m.mu.Unlock()
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, p)
	}
	ref := "cs_" + uuid.NewString()
	return &adapter.CheckoutSession{
		Ref:       ref,
		PayURL:    "https://checkout.test/" + ref,
		ExpiresAt: p.ExpiresAt,
	}, nil
}

func (m *MockPaymentGateway) GetCheckoutStatus(ctx context.Context, ref string) (adapter.CheckoutStatus, error) {
	m.mu.Lock()
	m.Calls.Status = append(m.Calls.Status, ref)
	m.mu.Unlock()
	if m.GetCheckoutStatusFunc != nil {
		return m.GetCheckoutStatusFunc(ctx, ref)
	}
	return adapter.CheckoutPaid, nil
}

// ---- Mock ChatTransportAdapter ----

type MockTransport struct {
	mu   sync.Mutex
	Sent []SentMessage

	SendMessageFunc func(ctx context.Context, senderID int64, text string) error
}

type SentMessage struct {
	SenderID int64
	Text     string
}

var _ adapter.ChatTransportAdapter = (*MockTransport)(nil)

func (m *MockTransport) SendMessage(ctx context.Context, senderID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, senderID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{SenderID: senderID, Text: text})
	return nil
}

func (m *MockTransport) Last() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMessage{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// ---- Mock AIServiceAdapter ----

type MockAI struct {
	mu         sync.Mutex
	Calls      []string // last user message per call
	CountCalls int

	ChatFunc        func(ctx context.Context, model string, msgs []adapter.Message) (string, error)
	CountTokensFunc func(ctx context.Context, model string, msgs []adapter.Message) (int, error)
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) Chat(ctx context.Context, modelName string, msgs []adapter.Message) (string, error) {
	m.mu.Lock()
	if len(msgs) > 0 {
		m.Calls = append(m.Calls, msgs[len(msgs)-1].Content)
	}
	m.mu.Unlock()
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, modelName, msgs)
	}
	return "mock ai reply", nil
}

func (m *MockAI) CountTokens(ctx context.Context, modelName string, msgs []adapter.Message) (int, error) {
	m.mu.Lock()
	m.CountCalls++
	m.mu.Unlock()
	if m.CountTokensFunc != nil {
		return m.CountTokensFunc(ctx, modelName, msgs)
	}
	return 12, nil
}

func (m *MockAI) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CountCalls
}
