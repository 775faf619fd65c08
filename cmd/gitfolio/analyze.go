package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/git"
	"github.com/rohankatakam/gitfolio/internal/models"
	"github.com/rohankatakam/gitfolio/internal/output"
)

var (
	analyzeUser  string
	analyzeCount int
	analyzeAll   bool
	analyzeOut   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [owner/repo | github url]...",
	Short: "Analyze recent commits of one or more repositories",
	Long: `Fetch the most recent commits of a repository and summarize them.

With no argument the repository is taken from the origin remote of the
current directory.

Examples:
  # Analyze the repository you are in
  gitfolio analyze

  # Analyze the last 20 commits of a repository
  gitfolio analyze acme/widget

  # Only your own commits, last 50
  gitfolio analyze https://github.com/acme/widget --user alice --count 50

  # Several repositories at once (bounded by analysis.concurrency)
  gitfolio analyze acme/widget acme/gadget -o json`,
	Args: cobra.ArbitraryArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeUser, "user", "u", "", "only commits by this GitHub login or email (default: the username setting)")
	analyzeCmd.Flags().IntVarP(&analyzeCount, "count", "n", 0, "number of commits to analyze (default: analysis.default_count)")
	analyzeCmd.Flags().BoolVar(&analyzeAll, "all-authors", false, "ignore the username setting and analyze every author")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "write the result to this file instead of stdout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	format, err := outputFormat()
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	username := analyzeUser
	if username == "" && !analyzeAll {
		username = a.settings.GitHubUsername
	}
	count := analyzeCount
	if count == 0 {
		count = a.cfg.Analysis.DefaultCount
	}

	if len(args) == 0 {
		owner, repo, err := currentRepo(ctx)
		if err != nil {
			return err
		}
		args = []string{owner + "/" + repo}
	}

	reqs := make([]models.AnalysisRequest, 0, len(args))
	for _, arg := range args {
		owner, repo, err := parseRepoRef(arg)
		if err != nil {
			return err
		}
		reqs = append(reqs, models.AnalysisRequest{Owner: owner, Repo: repo, Username: username, Count: count})
	}

	o := a.orchestrator()
	var buf bytes.Buffer

	if len(reqs) == 1 {
		logger.WithField("repo", reqs[0].FullName()).WithField("count", count).Debug("starting analysis")
		report, err := o.RunAnalysis(ctx, reqs[0])
		if err != nil {
			return err
		}
		if err := output.Render(&buf, report, format); err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), analyzeOut, buf.Bytes())
	}

	results := o.RunBatch(ctx, reqs, a.cfg.Analysis.Concurrency)
	failed := 0
	for i, res := range results {
		if res.Err != nil {
			failed++
			logger.WithError(res.Err).WithField("repo", res.Request.FullName()).Error("Analysis failed")
			continue
		}
		if i > 0 && format == output.FormatMarkdown {
			fmt.Fprintln(&buf, "\n---")
		}
		if err := output.Render(&buf, res.Report, format); err != nil {
			return err
		}
	}
	if failed > 0 {
		// an incomplete batch never replaces the --out file
		if analyzeOut == "" {
			if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
				return err
			}
		}
		return fmt.Errorf("%d of %d analyses failed", failed, len(results))
	}
	return writeResult(cmd.OutOrStdout(), analyzeOut, buf.Bytes())
}

// writeResult writes data to path, or to w when path is empty. The file is
// only created once the whole result is rendered.
func writeResult(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// parseRepoRef accepts "owner/repo", "github.com/owner/repo" or a full
// repository URL (including deeper paths such as /tree/main).
func parseRepoRef(ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	path := ref

	if strings.HasPrefix(ref, "git@") || strings.HasPrefix(ref, "ssh://") {
		owner, repo, err := git.ParseRepoURL(ref)
		if err != nil {
			return "", "", errors.ValidationErrorf("%v", err)
		}
		return owner, repo, nil
	}

	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", "", errors.ValidationErrorf("invalid repository url %q: %v", ref, err)
		}
		path = u.Path
	} else {
		path = strings.TrimPrefix(path, "github.com/")
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.ValidationErrorf("expected owner/repo, got %q", ref)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// currentRepo reads owner/repo from the origin remote of the working directory
func currentRepo(ctx context.Context) (string, string, error) {
	owner, repo, err := git.DetectRepo(ctx, "")
	if err != nil {
		return "", "", errors.ValidationErrorf("no repository given and none detected: %v", err)
	}
	logger.WithField("repo", owner+"/"+repo).Debug("detected repository from git remote")
	return owner, repo, nil
}
