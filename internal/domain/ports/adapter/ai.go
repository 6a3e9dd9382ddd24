package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// AIServiceAdapter is the port for LLM chat. The agent treats the model as a
// black box: prompt in, text out.
type AIServiceAdapter interface {
	// Chat returns only the assistant text.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// CountTokens must return prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)
}
