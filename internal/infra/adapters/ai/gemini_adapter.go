package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("gemini: no messages")
	}
	last := messages[len(messages)-1]
	if strings.ToLower(last.Role) != "user" {
		return "", errors.New("gemini: last message must be from user")
	}

	chat, err := g.client.Chats.Create(
		ctx,
		modelOrDefault(model, g.defaultModel),
		nil,
		toGenAIHistory(messages[:len(messages)-1]),
	)
	if err != nil {
		return "", err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return "", err
	}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			return t, nil
		}
	}
	return "", errors.New("gemini: empty response")
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	resp, err := g.client.Models.CountTokens(ctx, modelOrDefault(model, g.defaultModel), toGenAIHistory(messages), nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system":
			// Gemini has no separate "system" role in history; treat it as
			// a user instruction.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
