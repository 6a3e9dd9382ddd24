package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-horoscope-agent/internal/domain"
	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

var _ repository.PendingPaymentRepository = (*PendingPaymentRepo)(nil)

// PendingPaymentRepo keeps open checkouts in Redis under two keys: the record
// itself under the checkout ref, and a per-sender index pointing at that ref.
// Both expire with the checkout window, so an abandoned payment simply ages
// out and any late resolution finds nothing.
type PendingPaymentRepo struct {
	client RedisClient
	logger *zerolog.Logger
}

func NewPendingPaymentRepo(client RedisClient, logger *zerolog.Logger) *PendingPaymentRepo {
	return &PendingPaymentRepo{client: client, logger: logger}
}

func (r *PendingPaymentRepo) refKey(ref string) string {
	return fmt.Sprintf("pending_payment:ref:%s", ref)
}

func (r *PendingPaymentRepo) senderKey(senderID int64) string {
	return fmt.Sprintf("pending_payment:sender:%d", senderID)
}

// Save stores p and drops whatever checkout the sender had open before.
// One pending payment per sender is an invariant, not best effort.
func (r *PendingPaymentRepo) Save(ctx context.Context, p *model.PendingPayment) error {
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return domain.ErrCheckoutExpired
	}

	if old, err := r.client.Get(ctx, r.senderKey(p.SenderID)); err == nil && old != "" && old != p.CheckoutRef {
		if err := r.client.Del(ctx, r.refKey(old)); err != nil {
			return err
		}
		r.logger.Debug().Int64("sender_id", p.SenderID).Str("superseded_ref", old).Msg("superseded pending payment")
	} else if err != nil && !errors.Is(err, Nil) {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.refKey(p.CheckoutRef), data, ttl); err != nil {
		return err
	}
	return r.client.Set(ctx, r.senderKey(p.SenderID), p.CheckoutRef, ttl)
}

func (r *PendingPaymentRepo) Find(ctx context.Context, checkoutRef string) (*model.PendingPayment, error) {
	data, err := r.client.Get(ctx, r.refKey(checkoutRef))
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.decode(ctx, checkoutRef, data)
}

// Claim consumes the record. GETDEL makes duplicate resolutions race-free:
// exactly one caller gets the record, every other gets ErrNotFound.
func (r *PendingPaymentRepo) Claim(ctx context.Context, checkoutRef string) (*model.PendingPayment, error) {
	data, err := r.client.GetDel(ctx, r.refKey(checkoutRef))
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p, err := r.decode(ctx, checkoutRef, data)
	if err != nil {
		return nil, err
	}
	// Drop the sender index only if it still points at this ref; a newer
	// checkout may have replaced it already.
	if cur, err := r.client.Get(ctx, r.senderKey(p.SenderID)); err == nil && cur == checkoutRef {
		_ = r.client.Del(ctx, r.senderKey(p.SenderID))
	}
	return p, nil
}

func (r *PendingPaymentRepo) FindBySender(ctx context.Context, senderID int64) (*model.PendingPayment, error) {
	ref, err := r.client.Get(ctx, r.senderKey(senderID))
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.Find(ctx, ref)
}

func (r *PendingPaymentRepo) decode(ctx context.Context, ref, data string) (*model.PendingPayment, error) {
	var p model.PendingPayment
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		r.logger.Warn().Str("checkout_ref", ref).Err(err).Msg("dropping malformed pending payment")
		_ = r.client.Del(ctx, r.refKey(ref))
		return nil, domain.ErrNotFound
	}
	return &p, nil
}
