// Package genai provides GenAI-enhanced operations using OpenAI API.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// ClientInterface defines the operations flows need from the GenAI client.
// It exists so flows can be tested with a mock client.
type ClientInterface interface {
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client openai.Client
	model  openai.ChatModel
}

// NewClient initializes a new GenAI client. The API key is taken from
// options or the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("GenAI client missing API key")
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	slog.Debug("GenAI client created", "model", model)
	return &Client{client: openai.NewClient(option.WithAPIKey(apiKey)), model: model}, nil
}

// GenerateWithMessages generates a completion from a full message sequence.
// The context governs cancellation: a caller canceling ctx aborts the
// in-flight request.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("GenAI GenerateWithMessages failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("GenAI GenerateWithMessages returned no choices")
		return "", fmt.Errorf("no choices returned")
	}
	slog.Debug("GenAI GenerateWithMessages succeeded", "responseLength", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}
