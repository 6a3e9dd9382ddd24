package adapter

import "context"

// ChatTransportAdapter is the outbound side of the chat transport. The
// transport acknowledges inbound messages on its own; business logic only
// ever sends replies.
type ChatTransportAdapter interface {
	SendMessage(ctx context.Context, senderID int64, text string) error
}
