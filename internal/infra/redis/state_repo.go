package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo manages per-sender conversational state in Redis.
//
// Records carry their own expires_at on top of the Redis TTL: a record that
// survived in Redis but is past its stamp is still treated as absent and
// deleted on read. Malformed payloads are likewise treated as absent, never
// surfaced as errors.
type StateRepo struct {
	client RedisClient
	logger *zerolog.Logger
	now    func() time.Time
}

func NewStateRepo(client RedisClient, logger *zerolog.Logger) *StateRepo {
	return &StateRepo{client: client, logger: logger, now: time.Now}
}

func (s *StateRepo) stateKey(senderID int64) string {
	return fmt.Sprintf("conv_state:%d", senderID)
}

func (s *StateRepo) Set(ctx context.Context, senderID int64, state *model.ConversationState) error {
	if state == nil {
		return s.Clear(ctx, senderID)
	}
	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		// Already dead; storing it would only create garbage.
		return s.Clear(ctx, senderID)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(senderID), data, ttl)
}

func (s *StateRepo) Get(ctx context.Context, senderID int64) (*model.ConversationState, error) {
	key := s.stateKey(senderID)
	data, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, nil
		}
		return nil, err
	}

	var state model.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		s.logger.Warn().Int64("sender_id", senderID).Err(err).Msg("dropping malformed conversation state")
		_ = s.client.Del(ctx, key)
		return nil, nil
	}
	if state.Expired(s.now()) {
		// Lazy deletion: expired records are absent, full stop.
		_ = s.client.Del(ctx, key)
		return nil, nil
	}
	return &state, nil
}

func (s *StateRepo) Clear(ctx context.Context, senderID int64) error {
	return s.client.Del(ctx, s.stateKey(senderID))
}
