package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Scope names a key-value namespace
type Scope string

const (
	// ScopeLocal is device-only storage
	ScopeLocal Scope = "local"
	// ScopeSync is storage shared across the user's devices
	ScopeSync Scope = "sync"
)

// Well-known keys. Names match the settings written by every GitFolio client
// so local and synced data stay interchangeable.
const (
	KeyGitHubToken     = "githubToken"
	KeyTokenScope      = "tokenScope"
	KeyAnthropicAPIKey = "anthropicApiKey"
	KeyOpenAIAPIKey    = "openaiApiKey"
	KeyGeminiAPIKey    = "geminiApiKey"
	KeyBackendURL      = "backendUrl"
	KeyUseBackendAPI   = "useBackendApi"
	KeyGitHubUsername  = "githubUsername"
	KeyLastAnalysis    = "lastAnalysis"
	KeySavedAnalyses   = "savedAnalyses"
)

// IsSecret reports whether key holds a credential
func IsSecret(key string) bool {
	switch key {
	case KeyGitHubToken, KeyAnthropicAPIKey, KeyOpenAIAPIKey, KeyGeminiAPIKey:
		return true
	}
	return false
}

// Store is a fallible key-value scope. Values are JSON documents.
type Store interface {
	// Get returns ErrNotFound when key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for absent keys
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the value at key into target. found is false when the key
// is absent.
func GetJSON(ctx context.Context, s Store, key string, target interface{}) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key
func SetJSON(ctx context.Context, s Store, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// GetString reads a string value. Missing keys and empty strings both return "".
func GetString(ctx context.Context, s Store, key string) (string, error) {
	var v string
	if _, err := GetJSON(ctx, s, key, &v); err != nil {
		return "", err
	}
	return v, nil
}

// Scopes groups the stores a pipeline run reads from
type Scopes struct {
	Local Store
	// Sync is nil when no sync backend is configured
	Sync Store
}

// Close closes every configured scope
func (s *Scopes) Close() error {
	var errs []error
	if s.Local != nil {
		errs = append(errs, s.Local.Close())
	}
	if s.Sync != nil {
		errs = append(errs, s.Sync.Close())
	}
	return errors.Join(errs...)
}
