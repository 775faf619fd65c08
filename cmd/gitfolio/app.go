package main

import (
	"context"

	"github.com/rohankatakam/gitfolio/internal/analysis"
	"github.com/rohankatakam/gitfolio/internal/backend"
	"github.com/rohankatakam/gitfolio/internal/config"
	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/github"
	"github.com/rohankatakam/gitfolio/internal/llm"
	"github.com/rohankatakam/gitfolio/internal/output"
	"github.com/rohankatakam/gitfolio/internal/pipeline"
	"github.com/rohankatakam/gitfolio/internal/storage"
)

// app holds the collaborators a command needs, opened once per invocation
type app struct {
	cfg      *config.Config
	scopes   *storage.Scopes
	resolver *config.Resolver
	archive  *storage.Archive
	settings config.Settings
}

func openApp(ctx context.Context) (*app, error) {
	scopes, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, errors.StorageError(err, "failed to open storage")
	}

	settings, err := config.LoadSettings(ctx, scopes.Local, cfg)
	if err != nil {
		scopes.Close()
		return nil, err
	}

	logger.WithField("backend", settings.BackendURL).
		WithField("use_backend", settings.UseBackendAPI).
		WithField("sync", scopes.Sync != nil).
		Debug("storage opened")

	return &app{
		cfg:      cfg,
		scopes:   scopes,
		resolver: config.NewResolver(scopes, cfg.LLM.Provider),
		archive:  storage.NewArchive(scopes.Local),
		settings: settings,
	}, nil
}

func (a *app) Close() {
	if err := a.scopes.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close storage")
	}
}

func (a *app) fetcher() *github.Fetcher {
	return github.NewFetcher(github.Options{
		GraphQLURL:   a.cfg.GitHub.GraphQLURL,
		APIURL:       a.cfg.GitHub.APIURL,
		RateLimit:    a.cfg.GitHub.RateLimit,
		AuthorFilter: a.cfg.GitHub.AuthorFilter,
	})
}

func (a *app) backendClient() *backend.Client {
	return backend.NewClient(a.settings.BackendURL, a.cfg.Backend.Timeout, nil)
}

func (a *app) orchestrator() *pipeline.Orchestrator {
	factory := llm.NewFactory(llm.Options{
		Provider:  llm.Provider(a.cfg.LLM.Provider),
		Model:     a.cfg.LLM.Model,
		MaxTokens: a.cfg.LLM.MaxTokens,
		BaseURL:   a.cfg.LLM.BaseURL,
	})

	return pipeline.New(pipeline.Deps{
		Credentials: a.resolver,
		Mode: func(ctx context.Context) (bool, error) {
			return config.ShouldUseRemoteBackend(ctx, a.scopes.Local)
		},
		Fetcher: a.fetcher(),
		Analyzer: analysis.NewAnalyzer(a.resolver, factory, analysis.Options{
			MaxMessageChars: a.cfg.Analysis.MaxMessageChars,
			Language:        a.cfg.Output.Language,
		}),
		Remote:    a.backendClient(),
		Formatter: output.NewMarkdownFormatter(a.cfg.Output.Language),
		Recorder:  a.archive,
	}, pipeline.Options{
		Timeout:  a.cfg.Analysis.Timeout,
		MaxCount: a.cfg.Analysis.MaxCount,
	})
}

func outputFormat() (output.Format, error) {
	f, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return "", errors.ValidationErrorf("%v", err)
	}
	return f, nil
}
