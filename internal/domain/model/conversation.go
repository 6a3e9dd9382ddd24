package model

import "time"

// StateTTL bounds every conversational flow. A record older than this is
// garbage regardless of what it claims to contain.
const StateTTL = 30 * time.Minute

// ConversationState tracks one sender's progress through the
// ask-sign -> pay -> horoscope flow. The whole record is overwritten on every
// state change; there is no partial merge.
type ConversationState struct {
	SenderID     int64     `json:"sender_id"`
	AwaitingSign bool      `json:"awaiting_sign"`
	Sign         string    `json:"sign,omitempty"`
	PendingRef   string    `json:"pending_ref,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the record must be treated as absent.
// A zero ExpiresAt counts as expired: legacy or hand-crafted records without
// an expiry are never trusted.
func (s *ConversationState) Expired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || now.After(s.ExpiresAt)
}

// NewConversationState returns a fresh state for sender with the expiry
// window already stamped.
func NewConversationState(senderID int64, now time.Time) *ConversationState {
	return &ConversationState{
		SenderID:  senderID,
		ExpiresAt: now.Add(StateTTL),
	}
}

// Touch extends the record for another full window. Called on every
// state-changing step so the expiry tracks the last interaction.
func (s *ConversationState) Touch(now time.Time) {
	s.ExpiresAt = now.Add(StateTTL)
}
