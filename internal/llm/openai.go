package llm

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/rohankatakam/gitfolio/internal/errors"
)

// OpenAIClient wraps the go-openai chat completion API
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewOpenAIClient creates an OpenAI client
func NewOpenAIClient(apiKey string, opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		logger:    slog.Default().With("component", "openai", "model", opts.Model),
	}
}

// Complete sends a prompt to the chat completion endpoint
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: 0.1,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", errors.Upstream(errors.OriginLLM, openAIStatus(err), "openai completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	response := resp.Choices[0].Message.Content
	c.logger.Debug("openai completion",
		"prompt_length", len(userPrompt),
		"response_length", len(response),
		"tokens_used", resp.Usage.TotalTokens,
	)

	return response, nil
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
