package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// LLMHandler is the optional Anthropic-backed free-text responder. It is
// registered only when an API key is configured; the deterministic handlers
// never depend on it.
type LLMHandler struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	tracker   *TokenTracker
}

// LLMConfig configures the responder.
type LLMConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string
	// Model is the model identifier; empty selects a small default.
	Model string
	// MaxTokens caps the completion length; zero selects 1024.
	MaxTokens int
}

// NewLLMHandler creates the responder. It fails when no API key is given.
func NewLLMHandler(cfg LLMConfig) (*LLMHandler, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM responder requires an API key")
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaude3_5Haiku20241022
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &LLMHandler{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: maxTokens,
		tracker:   NewTokenTracker(),
	}, nil
}

func (h *LLMHandler) ID() string { return "llm-responder" }

func (h *LLMHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentGeneral}
}

func (h *LLMHandler) BasePriority() models.Priority { return models.PriorityLow }

// Tracker returns the token usage tracker for this responder.
func (h *LLMHandler) Tracker() *TokenTracker { return h.tracker }

func (h *LLMHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if req.HealthCheck {
		// Do not burn tokens on probes; a constructed client is healthy.
		return handler.Result{HandlerID: h.ID(), Summary: "responder configured", Confidence: 1.0}, nil
	}

	systemPrompt := "You are a concise shopping assistant. Answer the customer's message in at most two sentences."

	resp, err := h.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     h.model,
		MaxTokens: h.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Utterance)),
		},
	})
	if err != nil {
		return handler.Result{}, fmt.Errorf("completion request: %w", err)
	}

	h.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	if text == "" {
		return handler.Result{}, fmt.Errorf("completion returned no text")
	}

	return handler.Result{
		HandlerID:  h.ID(),
		Text:       text,
		Summary:    "generated response",
		Confidence: 0.75,
	}, nil
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
