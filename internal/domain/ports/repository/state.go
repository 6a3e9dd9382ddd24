package repository

import (
	"context"

	"telegram-horoscope-agent/internal/domain/model"
)

// StateRepository is the port for per-sender conversational state.
//
// Get returns (nil, nil) — not an error — for missing keys, records that fail
// to deserialize, records without a valid expiry, and expired records.
// Expired records are lazily deleted on read. Set fully overwrites; callers
// read-modify-write.
type StateRepository interface {
	Set(ctx context.Context, senderID int64, state *model.ConversationState) error
	Get(ctx context.Context, senderID int64) (*model.ConversationState, error)
	Clear(ctx context.Context, senderID int64) error
}
