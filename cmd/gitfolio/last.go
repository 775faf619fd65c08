package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/gitfolio/internal/output"
)

var (
	lastDownload bool
	lastDir      string
)

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the most recent analysis",
	Long: `Print the most recent analysis.

With --download the Markdown document is written to <repo>-overview.md
instead (in --dir, default the current directory).`,
	Args: cobra.NoArgs,
	RunE: runLast,
}

func init() {
	lastCmd.Flags().BoolVar(&lastDownload, "download", false, "write the Markdown to <repo>-overview.md")
	lastCmd.Flags().StringVar(&lastDir, "dir", ".", "directory for --download")
}

func runLast(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := outputFormat()
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	last, found, err := a.archive.Last(ctx)
	if err != nil {
		return err
	}
	if !found {
		if lastDownload {
			return fmt.Errorf("no analysis to download; run 'gitfolio analyze owner/repo' first")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No analysis has been run yet. Try 'gitfolio analyze owner/repo'.")
		return nil
	}

	if lastDownload {
		path := filepath.Join(lastDir, downloadName(last.Repo))
		if err := os.WriteFile(path, []byte(last.Markdown), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
		return nil
	}
	return output.RenderLast(cmd.OutOrStdout(), last, format)
}

func downloadName(repo string) string {
	if repo == "" {
		repo = "analysis"
	}
	return filepath.Base(repo) + "-overview.md"
}
