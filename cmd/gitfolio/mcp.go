package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/gitfolio/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve GitFolio tools over the Model Context Protocol (stdio)",
	Long: `Start an MCP server on stdin/stdout exposing:

  analyze_repository   summarize a repository's recent commits
  get_last_analysis    return the most recent analysis

Logs go to stderr (or log.file) so stdout stays reserved for the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer(mcp.ServerDeps{
		Runner:       a.orchestrator(),
		Archive:      a.archive,
		DefaultCount: a.cfg.Analysis.DefaultCount,
	})
	return srv.Run(ctx)
}
