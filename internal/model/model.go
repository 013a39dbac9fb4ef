// Package model provides the single-turn text generation client.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/chatrelay/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrMissingAPIKey is returned by New when the selected provider needs a key.
	ErrMissingAPIKey = errors.New("model API key required")

	// ErrEmptyResponse is returned when the provider answers without usable text.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrFatalAPI marks provider errors that will not resolve on their own
	// (bad credentials, exhausted quota, billing).
	ErrFatalAPI = errors.New("fatal model API error")
)

// Generator turns one prompt into one completion.
// Implementations must not carry state between calls.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client wraps a langchaingo model.
type Client struct {
	llm       llms.Model
	modelName string
}

var _ Generator = (*Client)(nil)

// New creates a client for the configured provider.
func New(cfg config.LLMConfig) (*Client, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return NewWithModel(model, cfg.Model), nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(llm llms.Model, modelName string) *Client {
	return &Client{llm: llm, modelName: modelName}
}

// Generate sends prompt as the only message and returns the trimmed reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages)
	duration := time.Since(start)
	if err != nil {
		slog.Warn("model generation failed", "model", c.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return "", wrapFatalError(fmt.Errorf("generate: %w", err))
	}

	text, err := responseText(resp)
	if err != nil {
		slog.Warn("model returned unusable response", "model", c.modelName, "error", err)
		return "", err
	}

	slog.Debug("model generation complete", "model", c.modelName, "prompt_len", len(prompt), "reply_len", len(text), "duration_ms", duration.Milliseconds())
	return text, nil
}

// Model returns the LLM model name.
func (c *Client) Model() string {
	return c.modelName
}

func responseText(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank content", ErrEmptyResponse)
	}
	return text, nil
}

var fatalMarkers = []string{
	"credit balance",
	"quota",
	"billing",
	"invalid api key",
	"incorrect api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func wrapFatalError(err error) error {
	if !isFatalAPIError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatalAPI, err)
}
