// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-horoscope-agent/internal/domain"
	"telegram-horoscope-agent/internal/domain/intent"
	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/adapter"
	"telegram-horoscope-agent/internal/domain/ports/repository"
	"telegram-horoscope-agent/internal/infra/logging"
	"telegram-horoscope-agent/internal/infra/metrics"
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

// ConversationUseCase is the single entry point the host wires events into:
// one call per inbound chat message, one per payment notification. Each call
// sends at most one reply through the chat transport.
type ConversationUseCase interface {
	HandleMessage(ctx context.Context, senderID int64, text string) error
	HandleCommit(ctx context.Context, checkoutRef string) error
	HandleReject(ctx context.Context, checkoutRef string) error
	// HandleExpire resolves a checkout that lapsed without payment. Expiry is
	// not a rejection: the pending record is consumed and the conversation
	// reset, but nobody gets messaged.
	HandleExpire(ctx context.Context, checkoutRef string) error
}

const (
	signListHint = "Aries, Taurus, Gemini, Cancer, Leo, Virgo, Libra, Scorpio, Sagittarius, Capricorn, Aquarius, Pisces"

	replyAskSign     = "Sure — what's your star sign? (e.g. " + signListHint + ")"
	replyRePrompt    = "What's your star sign? (e.g. " + signListHint + ")"
	replyProviderErr = "The payment service is unavailable right now. Please try again later."
	replyUnverified  = "Your payment isn't confirmed yet. Please finish the checkout first."
	replyRejected    = "Payment failed. You can try again by asking for your horoscope."
	replyExpired     = "Your checkout expired before payment completed. Ask for your horoscope to start over."
	replyFallback    = "Say 'horoscope' and I'll prepare your daily horoscope."
	replyNoHoroscope = "Payment received, but I couldn't generate your horoscope right now."
)

type conversationUC struct {
	states    repository.StateRepository
	pendings  repository.PendingPaymentRepository
	payments  PaymentSessionUseCase
	transport adapter.ChatTransportAdapter
	ai        adapter.AIServiceAdapter
	aiModel   string
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewConversationUseCase(
	states repository.StateRepository,
	pendings repository.PendingPaymentRepository,
	payments PaymentSessionUseCase,
	transport adapter.ChatTransportAdapter,
	ai adapter.AIServiceAdapter,
	aiModel string,
	logger *zerolog.Logger,
) *conversationUC {
	return &conversationUC{
		states:    states,
		pendings:  pendings,
		payments:  payments,
		transport: transport,
		ai:        ai,
		aiModel:   aiModel,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleMessage drives one turn of the state machine for an inbound message.
func (c *conversationUC) HandleMessage(ctx context.Context, senderID int64, text string) error {
	logger := logging.With(logging.WithSenderID(ctx, senderID), c.logger)
	defer logging.TraceDuration(logger, "ConversationUC.HandleMessage")()

	state, err := c.states.Get(ctx, senderID)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	it := intent.Classify(text, state != nil && state.AwaitingSign)
	metrics.IncMessage(intentLabel(it.Kind))
	logger.Debug().Str("intent", intentLabel(it.Kind)).Str("sign", it.Sign).Msg("inbound message")

	// Payment already pending: keep the interaction simple and point back at
	// the open checkout. State does not change on chat traffic.
	if state != nil && state.PendingRef != "" {
		pending, perr := c.pendings.Find(ctx, state.PendingRef)
		if errors.Is(perr, domain.ErrNotFound) {
			// The stored ref may merely be superseded; the sender index has
			// the current checkout. Repair the state instead of dropping it.
			if cur, cerr := c.pendings.FindBySender(ctx, senderID); cerr == nil {
				state.PendingRef = cur.CheckoutRef
				state.Sign = cur.Sign
				state.Touch(c.now())
				if serr := c.states.Set(ctx, senderID, state); serr != nil {
					return fmt.Errorf("save state: %w", serr)
				}
				pending, perr = cur, nil
			} else if !errors.Is(cerr, domain.ErrNotFound) {
				return fmt.Errorf("load pending payment: %w", cerr)
			}
		}
		switch {
		case perr == nil:
			msg := fmt.Sprintf("Payment is still pending. Please complete the checkout here:\n%s", pending.PayURL)
			return c.send(ctx, senderID, msg)
		case errors.Is(perr, domain.ErrNotFound):
			// The checkout aged out; the state is stale. Treat the sender as
			// idle for the rest of this turn.
			if cerr := c.states.Clear(ctx, senderID); cerr != nil {
				return fmt.Errorf("clear stale state: %w", cerr)
			}
			state = nil
		default:
			return fmt.Errorf("load pending payment: %w", perr)
		}
	}

	if state != nil && state.AwaitingSign {
		if it.Kind == intent.ProvidesSign {
			return c.startCheckout(ctx, senderID, it.Sign)
		}
		// Unrecognized answer: re-prompt, state unchanged. The record's own
		// expiry bounds how long this can go on.
		return c.send(ctx, senderID, replyRePrompt)
	}

	// Idle.
	switch {
	case it.Kind == intent.RequestsHoroscope && it.Sign != "":
		return c.startCheckout(ctx, senderID, it.Sign)
	case it.Kind == intent.RequestsHoroscope:
		st := model.NewConversationState(senderID, c.now())
		st.AwaitingSign = true
		if err := c.states.Set(ctx, senderID, st); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		return c.send(ctx, senderID, replyAskSign)
	default:
		return c.send(ctx, senderID, c.smallTalk(ctx, text))
	}
}

// HandleCommit reacts to a provider commit notification for checkoutRef.
func (c *conversationUC) HandleCommit(ctx context.Context, checkoutRef string) error {
	logger := logging.With(logging.WithCheckoutRef(ctx, checkoutRef), c.logger)
	defer logging.TraceDuration(logger, "ConversationUC.HandleCommit")()

	p, err := c.payments.ResolveCommit(ctx, checkoutRef)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Duplicate or forged notification; benign, no reply.
		return nil
	case errors.Is(err, domain.ErrPaymentUnverified):
		return c.send(ctx, p.SenderID, replyUnverified)
	case errors.Is(err, domain.ErrCheckoutExpired):
		if cerr := c.states.Clear(ctx, p.SenderID); cerr != nil {
			logger.Error().Err(cerr).Msg("clear state failed")
		}
		return c.send(ctx, p.SenderID, replyExpired)
	case err != nil:
		return err
	}

	text := c.horoscope(ctx, p.Sign)
	if err := c.states.Clear(ctx, p.SenderID); err != nil {
		logger.Error().Err(err).Msg("clear state failed")
	}
	return c.send(ctx, p.SenderID, text)
}

// HandleReject reacts to a provider reject notification for checkoutRef.
func (c *conversationUC) HandleReject(ctx context.Context, checkoutRef string) error {
	logger := logging.With(logging.WithCheckoutRef(ctx, checkoutRef), c.logger)
	defer logging.TraceDuration(logger, "ConversationUC.HandleReject")()

	p, err := c.payments.ResolveReject(ctx, checkoutRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := c.states.Clear(ctx, p.SenderID); err != nil {
		logger.Error().Err(err).Msg("clear state failed")
	}
	return c.send(ctx, p.SenderID, replyRejected)
}

// HandleExpire quietly clears an abandoned checkout for checkoutRef.
func (c *conversationUC) HandleExpire(ctx context.Context, checkoutRef string) error {
	logger := logging.With(logging.WithCheckoutRef(ctx, checkoutRef), c.logger)
	defer logging.TraceDuration(logger, "ConversationUC.HandleExpire")()

	p, err := c.payments.ResolveExpire(ctx, checkoutRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := c.states.Clear(ctx, p.SenderID); err != nil {
		logger.Error().Err(err).Msg("clear state failed")
	}
	return nil
}

// startCheckout moves the conversation into the paying stage. State is only
// written after the provider call succeeds, so a gateway failure leaves the
// stored state exactly as it was.
func (c *conversationUC) startCheckout(ctx context.Context, senderID int64, sign string) error {
	p, err := c.payments.CreateCheckout(ctx, senderID, sign)
	if err != nil {
		c.logger.Error().Err(err).Int64("sender_id", senderID).Msg("checkout creation failed")
		return c.send(ctx, senderID, replyProviderErr)
	}

	st := model.NewConversationState(senderID, c.now())
	st.Sign = sign
	st.PendingRef = p.CheckoutRef
	if err := c.states.Set(ctx, senderID, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	msg := fmt.Sprintf("Pay %s to receive your daily horoscope for %s:\n%s\n\nOnce payment completes, I'll reply here with your horoscope.",
		formatAmount(p.Amount, p.Currency), titleCase(sign), p.PayURL)
	return c.send(ctx, senderID, msg)
}

// horoscope is the gated action: it only ever runs after a verified payment.
func (c *conversationUC) horoscope(ctx context.Context, sign string) string {
	msgs := []adapter.Message{
		{Role: "system", Content: "You are a warm, slightly playful astrologer. Keep it under 120 words."},
		{Role: "user", Content: fmt.Sprintf("Write today's horoscope for %s.", sign)},
	}
	c.accountPromptTokens(ctx, "horoscope", msgs)
	out, err := c.ai.Chat(ctx, c.aiModel, msgs)
	if err != nil || strings.TrimSpace(out) == "" {
		c.logger.Warn().Err(err).Str("sign", sign).Msg("horoscope generation failed")
		return replyNoHoroscope
	}
	return out
}

func (c *conversationUC) smallTalk(ctx context.Context, text string) string {
	msgs := []adapter.Message{
		{Role: "system", Content: "You are a horoscope agent. Answer briefly and mention the user can ask for their daily horoscope."},
		{Role: "user", Content: text},
	}
	c.accountPromptTokens(ctx, "small_talk", msgs)
	out, err := c.ai.Chat(ctx, c.aiModel, msgs)
	if err != nil || strings.TrimSpace(out) == "" {
		return replyFallback
	}
	return out
}

// accountPromptTokens records the estimated prompt size before the provider
// call. Counting failures only cost the metric, never the reply.
func (c *conversationUC) accountPromptTokens(ctx context.Context, purpose string, msgs []adapter.Message) {
	n, err := c.ai.CountTokens(ctx, c.aiModel, msgs)
	if err != nil {
		c.logger.Debug().Err(err).Str("purpose", purpose).Msg("token count failed")
		return
	}
	metrics.AddPromptTokens(purpose, n)
	c.logger.Debug().Str("purpose", purpose).Int("prompt_tokens", n).Msg("prompt tokens")
}

func (c *conversationUC) send(ctx context.Context, senderID int64, text string) error {
	if err := c.transport.SendMessage(ctx, senderID, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	metrics.IncReply()
	return nil
}

func intentLabel(k intent.Kind) string {
	switch k {
	case intent.RequestsHoroscope:
		return "requests_horoscope"
	case intent.ProvidesSign:
		return "provides_sign"
	default:
		return "unrelated"
	}
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minor)/100.0, strings.ToUpper(currency))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
