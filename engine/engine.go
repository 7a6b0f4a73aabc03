// Package engine dispatches completion requests: it assembles the
// prompt from conversation history, issues a single bounded-time call
// to the configured provider, classifies the outcome, and triggers the
// side effects (turn persistence, operator notification) off the
// response path.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shellmind/shellmind-api/core"
	"github.com/shellmind/shellmind-api/notify"
	"github.com/shellmind/shellmind-api/prompt"
	"github.com/shellmind/shellmind-api/provider"
)

// DefaultTimeout bounds the upstream completion call.
const DefaultTimeout = 40 * time.Second

// backgroundBudget bounds each detached side-effect task.
const backgroundBudget = 30 * time.Second

// ErrTimeout reports that the upstream call was cancelled by the
// request timeout.
var ErrTimeout = errors.New("request timeout")

// ConversationMemory is the slice of the conversation store the
// dispatcher needs. memory.Manager satisfies it; tests inject fakes.
type ConversationMemory interface {
	History(ctx context.Context, conversationID string) []core.ChatMessage
	SaveTurn(ctx context.Context, conversationID, userText, aiText string) bool
}

// Request is one inbound completion request, already resolved by the
// HTTP layer.
type Request struct {
	// ConversationID is generated when empty.
	ConversationID string

	// Mode selects the prompt variant.
	Mode core.Mode

	// Input is the user's message text.
	Input string
}

// Config holds the model parameters applied to every outbound call.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// Dispatcher issues completion calls with timeout and side effects.
type Dispatcher struct {
	provider provider.Client
	memory   ConversationMemory // nil disables history and persistence
	notifier notify.Notifier
	config   Config

	wg sync.WaitGroup
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithMemory attaches the conversation store.
func WithMemory(m ConversationMemory) Option {
	return func(d *Dispatcher) {
		d.memory = m
	}
}

// WithNotifier attaches the failure notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(d *Dispatcher) {
		d.notifier = n
	}
}

// NewDispatcher creates a dispatcher for the given provider.
func NewDispatcher(p provider.Client, cfg Config, opts ...Option) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	d := &Dispatcher{
		provider: p,
		notifier: notify.Nop{},
		config:   cfg,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one completion request end to end. On success the
// response carries the (possibly generated) conversation identifier and
// the turn is persisted in the background. Timeout cancellation returns
// ErrTimeout; any other provider failure is returned as-is after an
// async notification attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*core.CompletionResponse, error) {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	var history []core.ChatMessage
	if d.memory != nil {
		history = d.memory.History(ctx, conversationID)
	}

	creq := &core.CompletionRequest{
		Model:       d.config.Model,
		MaxTokens:   d.config.MaxTokens,
		Temperature: d.config.Temperature,
		TopP:        d.config.TopP,
	}
	switch req.Mode {
	case core.ModeChat:
		creq.Messages = prompt.BuildChat(req.Input, history)
	default:
		creq.Messages = prompt.BuildCommand(req.Input, history)
		creq.ResponseSchema = prompt.CommandResponseSchema()
		creq.ResponseSchemaName = prompt.CommandSchemaName
	}

	callCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	resp, err := d.provider.Complete(callCtx, creq)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			log.Printf("[ENGINE] %s call timed out after %s", d.provider.Name(), d.config.Timeout)
			return nil, ErrTimeout
		}

		log.Printf("[ENGINE] %s call failed: %v", d.provider.Name(), err)
		d.background(func(bgCtx context.Context) {
			d.notifier.NotifyFailure(bgCtx, d.provider.Name(), err)
		})
		return nil, err
	}

	resp.ConversationID = conversationID

	if d.memory != nil && resp.Text() != "" {
		userText, aiText := req.Input, resp.Text()
		d.background(func(bgCtx context.Context) {
			if !d.memory.SaveTurn(bgCtx, conversationID, userText, aiText) {
				log.Printf("[ENGINE] Background save for %s failed", conversationID)
			}
		})
	}

	return resp, nil
}

// Wait blocks until all background side effects finish. Called on
// shutdown and by tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// background runs fn detached from the request with its own deadline,
// so the response never waits on persistence or notification.
func (d *Dispatcher) background(fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundBudget)
		defer cancel()
		fn(ctx)
	}()
}
