package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rohankatakam/gitfolio/internal/backend"
	"github.com/rohankatakam/gitfolio/internal/config"
	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/github"
	"github.com/rohankatakam/gitfolio/internal/models"
)

// DefaultTimeout bounds a whole run
const DefaultTimeout = 60 * time.Second

// CredentialSource resolves stored credentials
type CredentialSource interface {
	Resolve(ctx context.Context, kind config.CredentialKind) (config.Credential, error)
}

// CommitFetcher reads a window of repository history
type CommitFetcher interface {
	FetchCommits(ctx context.Context, token string, q github.HistoryQuery) ([]models.CommitRecord, error)
}

// Analyzer summarizes commits locally
type Analyzer interface {
	Analyze(ctx context.Context, commits []models.CommitRecord) (models.AnalysisResult, error)
}

// RemoteBackend delegates analysis to the GitFolio service
type RemoteBackend interface {
	SaveCommits(ctx context.Context, req backend.SaveCommitsRequest) error
	Generate(ctx context.Context, req backend.GenerateRequest) (*backend.GenerateResponse, error)
}

// Formatter renders a result as Markdown
type Formatter interface {
	Format(result models.AnalysisResult) string
}

// Recorder persists the outcome of a completed run
type Recorder interface {
	RecordLast(ctx context.Context, last models.LastAnalysis) error
}

// ModeFunc reports whether the remote backend should be used
type ModeFunc func(ctx context.Context) (bool, error)

// Deps are the collaborators of an Orchestrator. Remote may be nil when
// the remote backend is never selected.
type Deps struct {
	Credentials CredentialSource
	Mode        ModeFunc
	Fetcher     CommitFetcher
	Analyzer    Analyzer
	Remote      RemoteBackend
	Formatter   Formatter
	Recorder    Recorder
}

// Options tunes a run
type Options struct {
	Timeout  time.Duration
	MaxCount int
	// Now is the clock used for report timestamps
	Now func() time.Time
}

// Orchestrator runs the fetch, analyze, format, record chain
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New creates an orchestrator
func New(deps Deps, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: slog.Default().With("component", "orchestrator"),
	}
}

// Step names used in error context
const (
	stepResolveCredential = "resolving github credential"
	stepFetch             = "fetching commits"
	stepSelectMode        = "selecting backend mode"
	stepAnalyze           = "analyzing commits"
	stepRemote            = "generating analysis on backend"
	stepRecord            = "recording last analysis"
)

// RunAnalysis executes one complete run. A failure at any step aborts the
// run; no partial report is returned and nothing is recorded.
func (o *Orchestrator) RunAnalysis(ctx context.Context, req models.AnalysisRequest) (*models.Report, error) {
	if err := req.Validate(o.opts.MaxCount); err != nil {
		return nil, errors.ValidationErrorf("%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	logger := o.logger.With("repo", req.FullName(), "count", req.Count)

	cred, err := o.deps.Credentials.Resolve(ctx, config.CredentialGitHub)
	if err != nil {
		return nil, o.fail(ctx, stepResolveCredential, err)
	}
	if cred.Empty() {
		return nil, errors.CredentialMissing(string(config.CredentialGitHub))
	}

	commits, err := o.deps.Fetcher.FetchCommits(ctx, cred.Token, github.HistoryQuery{
		Owner:  req.Owner,
		Repo:   req.Repo,
		Author: req.Username,
		Count:  req.Count,
	})
	if err != nil {
		return nil, o.fail(ctx, stepFetch, err)
	}
	if len(commits) == 0 {
		return nil, o.fail(ctx, stepFetch, errors.SchemaErrorf(errors.OriginGitHub, "no commits found in %s", req.FullName()))
	}
	logger.Debug("fetched commits", "fetched", len(commits))

	remote, err := o.deps.Mode(ctx)
	if err != nil {
		return nil, o.fail(ctx, stepSelectMode, err)
	}

	mode := models.ModeLocal
	var result models.AnalysisResult
	if remote {
		mode = models.ModeRemote
		result, err = o.runRemote(ctx, req, cred.Token)
		if err != nil {
			return nil, o.fail(ctx, stepRemote, err)
		}
	} else {
		result, err = o.deps.Analyzer.Analyze(ctx, commits)
		if err != nil {
			return nil, o.fail(ctx, stepAnalyze, err)
		}
	}
	result.Normalize()

	report := &models.Report{
		Request:     req,
		Commits:     commits,
		Result:      result,
		Markdown:    o.deps.Formatter.Format(result),
		Mode:        mode,
		GeneratedAt: o.opts.Now().UTC(),
	}

	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.RecordLast(ctx, models.NewLastAnalysis(report)); err != nil {
			return nil, o.fail(ctx, stepRecord, err)
		}
	}

	logger.Info("analysis complete",
		"mode", mode,
		"contributions", len(result.Contributions),
		"duration", time.Since(start),
	)
	return report, nil
}

func (o *Orchestrator) runRemote(ctx context.Context, req models.AnalysisRequest, token string) (models.AnalysisResult, error) {
	if o.deps.Remote == nil {
		return models.AnalysisResult{}, errors.ConfigErrorf("remote backend selected but no backend client is configured")
	}

	// the service keeps its own commit list; failing to store it does not block the analysis
	if err := o.deps.Remote.SaveCommits(ctx, backend.SaveCommitsRequest{
		Owner:    req.Owner,
		Repo:     req.Repo,
		Username: req.Username,
		Count:    req.Count,
	}); err != nil {
		if ctx.Err() != nil {
			return models.AnalysisResult{}, err
		}
		o.logger.Warn("saving commits on backend failed", "repo", req.FullName(), "error", err)
	}

	resp, err := o.deps.Remote.Generate(ctx, backend.GenerateRequest{
		Owner:       req.Owner,
		Repo:        req.Repo,
		Username:    req.Username,
		Count:       req.Count,
		GitHubToken: token,
	})
	if err != nil {
		return models.AnalysisResult{}, err
	}
	return resp.Result()
}

// fail attaches step context. Deadline expiry on the run context is
// reported as a timeout regardless of how the component surfaced it.
func (o *Orchestrator) fail(ctx context.Context, step string, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout(step, err)
	}
	return fmt.Errorf("while %s: %w", step, err)
}
