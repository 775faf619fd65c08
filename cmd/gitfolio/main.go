package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/gitfolio/internal/config"
	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile    string
	verbose    bool
	formatFlag string
	langFlag   string
	logger     *logrus.Logger
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if e, ok := errors.As(err); ok && verbose {
			fmt.Fprintln(os.Stderr, e.DetailedString())
		}
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
	logging.Close()
}

var rootCmd = &cobra.Command{
	Use:   "gitfolio",
	Short: "GitFolio - turn a repository's commit history into a portfolio overview",
	Long: `GitFolio reads recent commits from a GitHub repository and summarizes them
into a project overview, contribution areas, tech stack and code highlights.

Analysis runs either on the GitFolio backend service or directly against
your LLM provider (see 'gitfolio config set use-backend false').`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		if formatFlag != "" {
			cfg.Output.Format = formatFlag
		}
		if langFlag != "" {
			cfg.Output.Language = langFlag
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(logging.Config{
			Level:      logging.ParseLevel(level),
			OutputFile: cfg.Log.File,
			JSONFormat: cfg.Log.JSON,
		}); err != nil {
			logger.WithError(err).Warn("Failed to open log file, logging to stderr only")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.gitfolio/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "o", "", "output format: markdown, json or yaml")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "document language: en or ko")

	rootCmd.SetVersionTemplate(`GitFolio {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
}

// errorHint suggests the next command for failures the user can fix
func errorHint(err error) string {
	e, ok := errors.As(err)
	if !ok {
		return ""
	}
	switch e.Type {
	case errors.ErrorTypeCredentialMissing:
		if kind, _ := e.Context["kind"].(string); kind == string(config.CredentialLLM) {
			return "store an API key with 'gitfolio config set-token llm', or use the backend with 'gitfolio config set use-backend true'"
		}
		return "store a GitHub token with 'gitfolio config set-token github --open'"
	case errors.ErrorTypeTimeout:
		return "raise analysis.timeout in the config file or analyze fewer commits with --count"
	case errors.ErrorTypeUpstream:
		if e.Origin == errors.OriginBackend {
			return "check the backend with 'gitfolio config get backend-url' or disable it with 'gitfolio config set use-backend false'"
		}
	}
	return ""
}
