package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/gitfolio/internal/config"
	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/github"
	"github.com/rohankatakam/gitfolio/internal/output"
)

var (
	commitsUser    string
	commitsCount   int
	commitsBackend bool
)

var commitsCmd = &cobra.Command{
	Use:   "commits [owner/repo]",
	Short: "List the commits an analysis would use",
	Long: `List recent commits of a repository.

By default commits are read live from GitHub. With --backend the list the
GitFolio backend stored for the repository is shown instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCommits,
}

func init() {
	commitsCmd.Flags().StringVarP(&commitsUser, "user", "u", "", "only commits by this GitHub login or email")
	commitsCmd.Flags().IntVarP(&commitsCount, "count", "n", 0, "number of commits (default: analysis.default_count)")
	commitsCmd.Flags().BoolVar(&commitsBackend, "backend", false, "list commits stored by the backend")
}

// commitRow is the printable form shared by both sources
type commitRow struct {
	Date      string `json:"date" yaml:"date"`
	Message   string `json:"message" yaml:"message"`
	Additions int    `json:"additions" yaml:"additions"`
	Deletions int    `json:"deletions" yaml:"deletions"`
	Author    string `json:"author,omitempty" yaml:"author,omitempty"`
}

func runCommits(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := outputFormat()
	if err != nil {
		return err
	}
	var owner, repo string
	if len(args) == 0 {
		owner, repo, err = currentRepo(ctx)
	} else {
		owner, repo, err = parseRepoRef(args[0])
	}
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	user := commitsUser
	if user == "" {
		user = a.settings.GitHubUsername
	}
	count := commitsCount
	if count == 0 {
		count = a.cfg.Analysis.DefaultCount
	}
	if count < 1 || count > a.cfg.Analysis.MaxCount {
		return errors.ValidationErrorf("count must be between 1 and %d", a.cfg.Analysis.MaxCount)
	}

	var rows []commitRow
	if commitsBackend {
		stored, err := a.backendClient().ListCommits(ctx, owner, repo, user, count)
		if err != nil {
			return err
		}
		for _, c := range stored {
			rows = append(rows, commitRow{
				Date:      shortDate(c.CommittedDate),
				Message:   c.Message,
				Additions: c.Additions,
				Deletions: c.Deletions,
			})
		}
	} else {
		cred, err := a.resolver.Resolve(ctx, config.CredentialGitHub)
		if err != nil {
			return err
		}
		if cred.Empty() {
			return errors.CredentialMissing(string(config.CredentialGitHub))
		}

		commits, err := a.fetcher().FetchCommits(ctx, cred.Token, github.HistoryQuery{
			Owner: owner, Repo: repo, Author: user, Count: count,
		})
		if err != nil {
			return err
		}
		for _, c := range commits {
			author := c.AuthorLogin
			if author == "" {
				author = c.AuthorName
			}
			rows = append(rows, commitRow{
				Date:      c.CommittedDate.Local().Format("2006-01-02"),
				Message:   c.Headline,
				Additions: c.Additions,
				Deletions: c.Deletions,
				Author:    author,
			})
		}
	}

	return printCommits(cmd.OutOrStdout(), rows, format)
}

func printCommits(w io.Writer, rows []commitRow, format output.Format) error {
	if rows == nil {
		rows = []commitRow{}
	}

	switch format {
	case output.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case output.FormatYAML:
		return yaml.NewEncoder(w).Encode(rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No commits found.")
		return err
	}

	fmt.Fprintf(w, "Commits (%d)\n", len(rows))
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Date", "+", "-", "Message", "Author"})
	for _, r := range rows {
		tbl.AppendRow(table.Row{r.Date, fmt.Sprintf("+%d", r.Additions), fmt.Sprintf("-%d", r.Deletions), truncate(r.Message, 70), r.Author})
	}
	tbl.Render()
	return nil
}

func shortDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
