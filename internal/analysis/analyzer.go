package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rohankatakam/gitfolio/internal/config"
	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/llm"
	"github.com/rohankatakam/gitfolio/internal/models"
)

// CredentialSource resolves stored credentials
type CredentialSource interface {
	Resolve(ctx context.Context, kind config.CredentialKind) (config.Credential, error)
}

// Options tunes prompt construction
type Options struct {
	MaxMessageChars int
	Language        string
}

// Analyzer turns a commit list into an AnalysisResult with one model call
type Analyzer struct {
	credentials CredentialSource
	factory     llm.Factory
	opts        Options
	logger      *slog.Logger
}

// NewAnalyzer creates an analyzer. factory is only invoked once an LLM
// credential has been resolved.
func NewAnalyzer(credentials CredentialSource, factory llm.Factory, opts Options) *Analyzer {
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = DefaultMaxMessageChars
	}
	return &Analyzer{
		credentials: credentials,
		factory:     factory,
		opts:        opts,
		logger:      slog.Default().With("component", "analyzer"),
	}
}

// Analyze summarizes commits. A missing LLM credential fails before any
// network traffic.
func (a *Analyzer) Analyze(ctx context.Context, commits []models.CommitRecord) (models.AnalysisResult, error) {
	cred, err := a.credentials.Resolve(ctx, config.CredentialLLM)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	if cred.Empty() {
		return models.AnalysisResult{}, errors.CredentialMissing(string(config.CredentialLLM))
	}

	completer, err := a.factory(ctx, cred.Token)
	if err != nil {
		return models.AnalysisResult{}, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh, "creating llm client")
	}

	digest := BuildDigest(commits, a.opts.MaxMessageChars)
	prompt := BuildUserPrompt(digest, a.opts.Language)

	a.logger.Debug("requesting analysis",
		"commits", len(commits),
		"prompt_length", len(prompt),
	)

	text, err := completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return models.AnalysisResult{}, err
		}
		return models.AnalysisResult{}, errors.Upstream(errors.OriginLLM, 0, "llm completion failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return models.AnalysisResult{}, errors.ExtractionError("")
	}

	return ParseResult(text)
}
