package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/gitfolio/internal/config"
	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/storage"
)

var (
	tokenScope  string
	tokenOpen   bool
	tokenForget bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage GitFolio settings and credentials",
	Long: `View and modify GitFolio settings.

Infrastructure (storage engines, provider, limits) lives in the config file.
User settings (backend url, backend mode, username) and credentials live in
local storage; API keys go to the OS keychain when one is available.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration and settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <setting>",
	Short: "Get a user setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <setting> [value]",
	Short: "Set a user setting (omit value to clear it)",
	Long: `Set a user setting in local storage.

Settings: ` + strings.Join(config.SettingNames(), ", ") + `

Examples:
  # Analyze directly with your own LLM key instead of the backend
  gitfolio config set use-backend false

  # Point at a self-hosted backend
  gitfolio config set backend-url https://gitfolio.example.com

  # Default author filter for 'analyze'
  gitfolio config set username alice`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token <github|llm>",
	Short: "Store a GitHub token or LLM API key",
	Long: `Store a credential. The token is read from the terminal without echo, or
from stdin when piped.

Examples:
  # Open the token page in a browser, then paste the token
  gitfolio config set-token github --open

  # Share the token with your other devices through sync storage
  gitfolio config set-token github --scope sync

  # Pipe a key in CI
  echo "$ANTHROPIC_API_KEY" | gitfolio config set-token llm

  # Remove a stored key
  gitfolio config set-token llm --forget`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(config.CredentialGitHub), string(config.CredentialLLM)},
	RunE:      runConfigSetToken,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration to the config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configInitCmd)

	configSetTokenCmd.Flags().StringVar(&tokenScope, "scope", string(storage.ScopeLocal), "where to store the token: local or sync")
	configSetTokenCmd.Flags().BoolVar(&tokenOpen, "open", false, "open the provider's token page in a browser first")
	configSetTokenCmd.Flags().BoolVar(&tokenForget, "forget", false, "remove the stored credential")
}

// tokenPages maps a credential to where the user can create one
func tokenPage(kind config.CredentialKind, provider string) string {
	if kind == config.CredentialGitHub {
		return "https://github.com/settings/tokens"
	}
	switch provider {
	case "openai":
		return "https://platform.openai.com/api-keys"
	case "gemini":
		return "https://aistudio.google.com/app/apikey"
	default:
		return "https://console.anthropic.com/settings/keys"
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "📋 GitFolio Configuration")
	fmt.Fprintln(out, "════════════════════════")

	fmt.Fprintf(out, "\n⚙️  Settings:\n")
	fmt.Fprintf(out, "  backend-url = %s\n", a.settings.BackendURL)
	fmt.Fprintf(out, "  use-backend = %t\n", a.settings.UseBackendAPI)
	fmt.Fprintf(out, "  token-scope = %s\n", a.settings.TokenScope)
	fmt.Fprintf(out, "  username = %s\n", a.settings.GitHubUsername)

	fmt.Fprintf(out, "\n🔑 Credentials:\n")
	for _, kind := range []config.CredentialKind{config.CredentialGitHub, config.CredentialLLM} {
		cred, err := a.resolver.Resolve(ctx, kind)
		if err != nil {
			return err
		}
		if cred.Empty() {
			fmt.Fprintf(out, "  %s = (not set)\n", kind)
			continue
		}
		fmt.Fprintf(out, "  %s = %s (%s)\n", kind, storage.MaskSecret(cred.Token), cred.Scope)
	}
	if k, ok := a.scopes.Local.(*storage.KeyringStore); ok {
		if k.KeychainAvailable() {
			fmt.Fprintln(out, "  keychain = available ✅")
		} else {
			fmt.Fprintln(out, "  keychain = unavailable ⚠️  (secrets stored in plaintext)")
		}
	}

	fmt.Fprintf(out, "\n💾 Storage:\n")
	fmt.Fprintf(out, "  storage.local_driver = %s\n", a.cfg.Storage.LocalDriver)
	fmt.Fprintf(out, "  storage.local_path = %s\n", a.cfg.Storage.LocalPath)
	if a.cfg.Storage.SyncURL != "" {
		fmt.Fprintf(out, "  storage.sync_url = %s\n", redactURL(a.cfg.Storage.SyncURL))
	} else {
		fmt.Fprintln(out, "  storage.sync_url = (disabled)")
	}

	fmt.Fprintf(out, "\n🤖 LLM:\n")
	fmt.Fprintf(out, "  llm.provider = %s\n", a.cfg.LLM.Provider)
	fmt.Fprintf(out, "  llm.model = %s\n", valueOr(a.cfg.LLM.Model, "(provider default)"))
	fmt.Fprintf(out, "  llm.max_tokens = %d\n", a.cfg.LLM.MaxTokens)

	fmt.Fprintf(out, "\n📊 Analysis:\n")
	fmt.Fprintf(out, "  analysis.default_count = %d\n", a.cfg.Analysis.DefaultCount)
	fmt.Fprintf(out, "  analysis.max_count = %d\n", a.cfg.Analysis.MaxCount)
	fmt.Fprintf(out, "  analysis.timeout = %s\n", a.cfg.Analysis.Timeout)
	fmt.Fprintf(out, "  output.language = %s\n", a.cfg.Output.Language)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var value interface{}
	switch args[0] {
	case "backend-url":
		value = a.settings.BackendURL
	case "use-backend":
		value = a.settings.UseBackendAPI
	case "token-scope":
		value = a.settings.TokenScope
	case "username":
		value = a.settings.GitHubUsername
	default:
		return errors.ValidationErrorf("unknown setting %q (expected one of %s)", args[0], strings.Join(config.SettingNames(), ", "))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	value := ""
	if len(args) == 2 {
		value = args[1]
	}
	if err := config.SetSetting(ctx, a.scopes.Local, args[0], value); err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Cleared %s\n", args[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Set %s = %s\n", args[0], value)
	}
	return nil
}

func runConfigSetToken(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind := config.CredentialKind(args[0])
	if kind != config.CredentialGitHub && kind != config.CredentialLLM {
		return errors.ValidationErrorf("unknown credential %q (expected github or llm)", args[0])
	}
	scope := storage.Scope(tokenScope)
	if scope != storage.ScopeLocal && scope != storage.ScopeSync {
		return errors.ValidationErrorf("--scope must be local or sync, got %q", tokenScope)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if tokenForget {
		if err := a.resolver.Forget(ctx, kind); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Removed %s credential\n", kind)
		return nil
	}

	if tokenOpen {
		page := tokenPage(kind, a.cfg.LLM.Provider)
		if err := browser.OpenURL(page); err != nil {
			logger.WithError(err).Warn("Could not open a browser")
			fmt.Fprintf(cmd.ErrOrStderr(), "Open %s to create a token.\n", page)
		}
	}

	prompt := "GitHub token: "
	if kind == config.CredentialLLM {
		prompt = fmt.Sprintf("%s API key: ", a.cfg.LLM.Provider)
	}
	token, err := config.ReadSecret(os.Stdin, cmd.ErrOrStderr(), prompt)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	if err := a.resolver.Store(ctx, kind, token, scope); err != nil {
		return err
	}

	where := string(scope) + " storage"
	if k, ok := a.scopes.Local.(*storage.KeyringStore); ok && scope == storage.ScopeLocal && k.KeychainAvailable() {
		where = "OS keychain"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s credential saved to %s (%s)\n", kind, where, storage.MaskSecret(token))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return errors.ValidationErrorf("%s already exists", path)
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// redactURL hides the password of a storage url
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return raw
	}
	creds := raw[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon != -1 {
		return raw[:scheme+3] + creds[:colon] + ":****" + raw[at:]
	}
	return raw
}
