// Package genai provides LLM completion operations using the OpenAI API.
//
// The client sends layered system blocks (the static, cache-friendly block
// first), a role-tagged conversation history and an optional assistant
// prefill, and reports token usage alongside the reply text. Every call is
// bounded by a timeout; timeouts and transport failures surface as
// models.ErrModelUnavailable so callers can choose their fallback path.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default configuration constants
const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o"
	// DefaultTimeout bounds one completion round trip.
	DefaultTimeout = 15 * time.Second
)

// CompletionRequest describes one model call.
type CompletionRequest struct {
	// System blocks are sent in order; the first is the static,
	// cache-friendly instruction block kept byte-identical across calls.
	System []string
	// Messages is the role-tagged conversation history, oldest first.
	Messages []models.ChatMessage
	// Prefill seeds the assistant reply. Callers must prepend it to the
	// returned text before extraction; the model omits it from its output.
	Prefill     string
	MaxTokens   int64
	Temperature float64
	// HasTemperature distinguishes an explicit 0 from "use the model default".
	HasTemperature bool
}

// CompletionResult is the text and usage of one model call.
type CompletionResult struct {
	Text  string
	Usage models.TokenUsage
}

// ClientInterface defines the completion operations used by the flows.
// It enables mocking the model in tests.
type ClientInterface interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key for the client.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API endpoint, e.g. for a compatible proxy.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout bounds each completion round trip.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient initializes a GenAI client. A missing API key is a configuration
// error; flows treat it like any other completion failure and fall back.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		slog.Error("GenAI client API key not set")
		return nil, fmt.Errorf("API key not set: %w", models.ErrConfigurationMissing)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Debug("GenAI client initialized", "model", cfg.Model, "timeout", cfg.Timeout)
	return &Client{
		client:  openai.NewClient(reqOpts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Complete performs one bounded chat completion round trip.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.System)+len(req.Messages)+1)
	for _, block := range req.System {
		if block != "" {
			msgs = append(msgs, openai.SystemMessage(block))
		}
	}
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	if req.Prefill != "" {
		msgs = append(msgs, openai.AssistantMessage(req.Prefill))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.HasTemperature {
		params.Temperature = openai.Float(req.Temperature)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		slog.Error("GenAI.Complete: chat completion failed", "error", err, "model", c.model, "elapsed", time.Since(start))
		return nil, fmt.Errorf("chat completion failed (%v): %w", err, models.ErrModelUnavailable)
	}
	if len(resp.Choices) == 0 {
		slog.Error("GenAI.Complete: no choices returned", "model", c.model)
		return nil, fmt.Errorf("no choices returned: %w", models.ErrMalformedModelOutput)
	}

	result := &CompletionResult{
		Text: resp.Choices[0].Message.Content,
		Usage: models.TokenUsage{
			InputTokens:     resp.Usage.PromptTokens,
			OutputTokens:    resp.Usage.CompletionTokens,
			CacheReadTokens: resp.Usage.PromptTokensDetails.CachedTokens,
		},
	}
	slog.Debug("GenAI.Complete: completion succeeded",
		"model", c.model,
		"elapsed", time.Since(start),
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"cached_tokens", result.Usage.CacheReadTokens)
	return result, nil
}
