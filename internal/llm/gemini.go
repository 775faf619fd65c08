package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/rohankatakam/gitfolio/internal/errors"
)

// GeminiClient wraps Google's Generative AI SDK
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*GeminiClient, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		logger:    slog.Default().With("component", "gemini", "model", opts.Model),
	}, nil
}

// Complete sends a prompt to Gemini and returns the text of the first candidate
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var systemInstruction *genai.Content
	if systemPrompt != "" {
		systemInstruction = genai.Text(systemPrompt)[0]
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       ptrFloat32(0.1),
		MaxOutputTokens:   int32(c.maxTokens),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), genConfig)
	if err != nil {
		status := 0
		var apiErr genai.APIError
		if stderrors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return "", errors.Upstream(errors.OriginLLM, status, "gemini completion failed", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := sb.String()
	c.logger.Debug("gemini completion",
		"prompt_length", len(userPrompt),
		"response_length", len(text),
	)

	return text, nil
}
