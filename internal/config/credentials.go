package config

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/storage"
)

// CredentialKind names a credential the pipeline needs
type CredentialKind string

const (
	CredentialGitHub CredentialKind = "github"
	CredentialLLM    CredentialKind = "llm"
)

// Credential is a resolved token and the scope it came from. The zero value
// means no credential was found.
type Credential struct {
	Token string
	Scope storage.Scope
}

// Empty reports whether no token was found
func (c Credential) Empty() bool {
	return c.Token == ""
}

// Resolver finds credentials in the layered storage scopes.
// Priority: local scope → sync scope (only when tokenScope is "sync")
type Resolver struct {
	scopes   *storage.Scopes
	provider string
	logger   *slog.Logger
}

// NewResolver creates a resolver. provider picks the LLM API key.
func NewResolver(scopes *storage.Scopes, provider string) *Resolver {
	return &Resolver{
		scopes:   scopes,
		provider: provider,
		logger:   slog.Default().With("component", "credentials"),
	}
}

// StorageKey returns the key holding the credential of kind
func (r *Resolver) StorageKey(kind CredentialKind) (string, error) {
	switch kind {
	case CredentialGitHub:
		return storage.KeyGitHubToken, nil
	case CredentialLLM:
		return LLMKeyFor(r.provider), nil
	}
	return "", errors.ValidationErrorf("unknown credential kind %q", kind)
}

// LLMKeyFor maps a provider to the key of its API key
func LLMKeyFor(provider string) string {
	switch provider {
	case "openai":
		return storage.KeyOpenAIAPIKey
	case "gemini":
		return storage.KeyGeminiAPIKey
	default:
		return storage.KeyAnthropicAPIKey
	}
}

// Resolve returns the credential of kind. Absence is not an error: it
// returns the empty Credential. Only storage failures are returned.
func (r *Resolver) Resolve(ctx context.Context, kind CredentialKind) (Credential, error) {
	key, err := r.StorageKey(kind)
	if err != nil {
		return Credential{}, err
	}

	token, err := storage.GetString(ctx, r.scopes.Local, key)
	if err != nil {
		return Credential{}, errors.StorageErrorf(err, "failed to read %s from local storage", key)
	}
	if token != "" {
		r.logger.Debug("credential resolved", "kind", kind, "scope", storage.ScopeLocal)
		return Credential{Token: token, Scope: storage.ScopeLocal}, nil
	}

	if r.scopes.Sync == nil {
		return Credential{}, nil
	}

	scope, err := storage.GetString(ctx, r.scopes.Local, storage.KeyTokenScope)
	if err != nil {
		return Credential{}, errors.StorageError(err, "failed to read token scope")
	}
	if storage.Scope(scope) != storage.ScopeSync {
		return Credential{}, nil
	}

	token, err = storage.GetString(ctx, r.scopes.Sync, key)
	if err != nil {
		return Credential{}, errors.StorageErrorf(err, "failed to read %s from sync storage", key)
	}
	if token == "" {
		return Credential{}, nil
	}

	r.logger.Debug("credential resolved", "kind", kind, "scope", storage.ScopeSync)
	return Credential{Token: token, Scope: storage.ScopeSync}, nil
}

// Store writes a credential to scope. Writing to the sync scope also records
// tokenScope=sync so later reads fall back to it.
func (r *Resolver) Store(ctx context.Context, kind CredentialKind, token string, scope storage.Scope) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.ValidationErrorf("%s credential cannot be empty", kind)
	}

	key, err := r.StorageKey(kind)
	if err != nil {
		return err
	}

	target := r.scopes.Local
	if scope == storage.ScopeSync {
		if r.scopes.Sync == nil {
			return errors.ConfigErrorf("sync storage is not configured (set storage.sync_url)")
		}
		target = r.scopes.Sync
	}

	if err := storage.SetJSON(ctx, target, key, token); err != nil {
		return errors.StorageErrorf(err, "failed to save %s", key)
	}
	if err := storage.SetJSON(ctx, r.scopes.Local, storage.KeyTokenScope, string(scope)); err != nil {
		return errors.StorageError(err, "failed to save token scope")
	}

	r.logger.Info("credential saved", "kind", kind, "scope", scope)
	return nil
}

// Forget removes the credential of kind from both scopes
func (r *Resolver) Forget(ctx context.Context, kind CredentialKind) error {
	key, err := r.StorageKey(kind)
	if err != nil {
		return err
	}
	if err := r.scopes.Local.Delete(ctx, key); err != nil {
		return errors.StorageErrorf(err, "failed to delete %s", key)
	}
	if r.scopes.Sync != nil {
		if err := r.scopes.Sync.Delete(ctx, key); err != nil {
			return errors.StorageErrorf(err, "failed to delete %s from sync storage", key)
		}
	}
	return nil
}

// ReadSecret reads a token from in without echoing when in is a terminal
func ReadSecret(in *os.File, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	if term.IsTerminal(int(in.Fd())) {
		bytes, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out) // New line after password input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Fallback: piped input
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
