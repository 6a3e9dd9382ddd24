package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"telegram-horoscope-agent/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter on the official SDK.
type OpenAIAdapter struct {
	client       openai.Client
	defaultModel string
}

func NewOpenAIAdapter(apiKey, defaultModel string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
	}, nil
}

func (o *OpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if model == "" {
		model = o.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, m := range messages {
		switch strings.ToLower(m.Role) {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

// CountTokens is a local estimate via tiktoken; exact accounting happens on
// the provider side.
func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	if model == "" {
		model = o.defaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	total := 0
	for _, m := range messages {
		total += len(enc.Encode(m.Content, nil, nil))
		total += 4 // rough per-message framing overhead
	}
	return total, nil
}
