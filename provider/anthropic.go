package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shellmind/shellmind-api/core"
)

// anthropicDefaultMaxTokens applies when the request leaves MaxTokens
// unset; the Anthropic API requires an explicit value.
const anthropicDefaultMaxTokens = 2048

// Anthropic adapts the Anthropic Messages API to the Client interface,
// normalizing responses into the OpenAI-shaped payload the terminal
// client expects.
type Anthropic struct {
	client *anthropic.Client
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(apiKey string, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := anthropic.NewClient(opts...)
	return &Anthropic{client: &client}
}

// Name implements Client.
func (p *Anthropic) Name() string {
	return "anthropic"
}

// Complete implements Client. System-role messages become the params
// system blocks; the JSON response schema, when requested, is carried
// by the prompt text alone since the Messages API has no equivalent of
// the OpenAI response_format field.
func (p *Anthropic) Complete(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		TopP:        anthropic.Float(req.TopP),
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case core.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{
				Provider:   p.Name(),
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Error(),
			}
		}
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &core.CompletionResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   string(resp.Model),
		Choices: []core.Choice{
			{
				Index: 0,
				Message: core.ChatMessage{
					Role:    core.RoleAssistant,
					Content: text,
				},
				FinishReason: string(resp.StopReason),
			},
		},
		Usage: core.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

var _ Client = (*Anthropic)(nil)
