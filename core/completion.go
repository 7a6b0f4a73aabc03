package core

// CompletionRequest is the normalized outbound chat completion call.
// Providers translate it into their own wire format.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	TopP        float64

	// ResponseSchema, when set, asks the provider for a structured JSON
	// response matching the schema. Providers without native schema
	// support may ignore it; the prompt text carries the same demand.
	ResponseSchema     map[string]interface{}
	ResponseSchemaName string
}

// Choice is one candidate completion.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage reports token consumption for a completion call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the upstream completion payload returned to the
// terminal client, augmented with the conversation identifier. The shape
// follows the OpenAI chat completion format that both proxied providers
// speak; Anthropic responses are normalized into it.
type CompletionResponse struct {
	ID             string   `json:"id"`
	Object         string   `json:"object"`
	Created        int64    `json:"created"`
	Model          string   `json:"model"`
	Choices        []Choice `json:"choices"`
	Usage          Usage    `json:"usage"`
	ConversationID string   `json:"conversationId,omitempty"`
}

// Text returns the assistant text of the first choice, or "" when the
// response carries no choices.
func (r *CompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
