// Package provider issues outbound chat completion calls to third-party
// LLM APIs behind a single Client interface. Hyperbolic and OpenRouter
// speak the OpenAI wire format; Anthropic responses are normalized into
// the same shape.
package provider

import (
	"context"
	"fmt"

	"github.com/shellmind/shellmind-api/core"
)

// Client is one upstream completion provider.
type Client interface {
	// Complete issues a single, non-streaming completion call. It makes
	// exactly one attempt; retry policy belongs to the caller.
	Complete(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error)

	// Name identifies the provider for logging and notifications.
	Name() string
}

// UpstreamError is a non-success response from a provider: an HTTP
// error status or a rejected request. It is the only provider failure
// surfaced to the end caller.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}
