package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/shellmind/shellmind-api/core"
)

const (
	// HyperbolicBaseURL is Hyperbolic's OpenAI-compatible endpoint.
	HyperbolicBaseURL = "https://api.hyperbolic.xyz/v1"

	// OpenRouterBaseURL is OpenRouter's OpenAI-compatible endpoint.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAICompatible talks to any provider exposing the OpenAI chat
// completion wire format under a custom base URL.
type OpenAICompatible struct {
	client openai.Client
	name   string
}

// NewHyperbolic creates a client for Hyperbolic.
func NewHyperbolic(apiKey string) *OpenAICompatible {
	return NewOpenAICompatible("hyperbolic", HyperbolicBaseURL, apiKey)
}

// NewOpenRouter creates a client for OpenRouter.
func NewOpenRouter(apiKey string) *OpenAICompatible {
	return NewOpenAICompatible("openrouter", OpenRouterBaseURL, apiKey)
}

// NewOpenAICompatible creates a client for an arbitrary OpenAI-format
// endpoint. Used directly by tests to point at a stub server.
func NewOpenAICompatible(name, baseURL, apiKey string) *OpenAICompatible {
	return &OpenAICompatible{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		name: name,
	}
}

// Name implements Client.
func (p *OpenAICompatible) Name() string {
	return p.name
}

// Complete implements Client with a single non-streaming call.
func (p *OpenAICompatible) Complete(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ResponseSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.ResponseSchemaName,
					Schema: req.ResponseSchema,
				},
			},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{
				Provider:   p.name,
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Error(),
			}
		}
		return nil, fmt.Errorf("%s completion: %w", p.name, err)
	}

	resp := &core.CompletionResponse{
		ID:      completion.ID,
		Object:  "chat.completion",
		Created: completion.Created,
		Model:   string(completion.Model),
		Usage: core.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	for i, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, core.Choice{
			Index: i,
			Message: core.ChatMessage{
				Role:    core.RoleAssistant,
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		})
	}
	return resp, nil
}

func toOpenAIMessages(messages []core.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

var _ Client = (*OpenAICompatible)(nil)
