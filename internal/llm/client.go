package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Provider represents the LLM provider
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// Completer sends one system+user prompt pair and returns the model's text
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options configures a provider client
type Options struct {
	Provider  Provider
	Model     string // empty = provider default
	MaxTokens int
	// BaseURL overrides the provider endpoint (proxies, tests)
	BaseURL    string
	HTTPClient *http.Client
}

// DefaultModel returns the model used when none is configured
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "claude-3-7-sonnet-20250219"
	}
}

// NewCompleter creates the client for opts.Provider authenticated with apiKey
func NewCompleter(ctx context.Context, opts Options, apiKey string) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is required", opts.Provider)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}

	switch opts.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicClient(apiKey, opts), nil
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, opts), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

// Factory builds a Completer from an API key. The analyzer resolves the key
// first so a missing credential never reaches the network.
type Factory func(ctx context.Context, apiKey string) (Completer, error)

// NewFactory binds opts into a Factory
func NewFactory(opts Options) Factory {
	return func(ctx context.Context, apiKey string) (Completer, error) {
		return NewCompleter(ctx, opts, apiKey)
	}
}

func ptrFloat32(v float32) *float32 {
	return &v
}
