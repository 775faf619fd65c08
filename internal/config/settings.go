package config

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/storage"
)

// Settings are the user preferences held in the local scope, read once per
// command.
type Settings struct {
	BackendURL     string        `json:"backend_url" yaml:"backend_url"`
	UseBackendAPI  bool          `json:"use_backend_api" yaml:"use_backend_api"`
	TokenScope     storage.Scope `json:"token_scope" yaml:"token_scope"`
	GitHubUsername string        `json:"github_username" yaml:"github_username"`
}

// LoadSettings reads user settings from the local scope, falling back to
// the config file defaults.
func LoadSettings(ctx context.Context, local storage.Store, cfg *Config) (Settings, error) {
	s := Settings{TokenScope: storage.ScopeLocal}

	url, err := storage.GetString(ctx, local, storage.KeyBackendURL)
	if err != nil {
		return s, errors.StorageError(err, "failed to read backend url")
	}
	if url == "" {
		url = cfg.Backend.URL
	}
	s.BackendURL = strings.TrimRight(url, "/")

	if s.UseBackendAPI, err = ShouldUseRemoteBackend(ctx, local); err != nil {
		return s, errors.StorageError(err, "failed to read backend mode")
	}

	scope, err := storage.GetString(ctx, local, storage.KeyTokenScope)
	if err != nil {
		return s, errors.StorageError(err, "failed to read token scope")
	}
	if scope == string(storage.ScopeSync) {
		s.TokenScope = storage.ScopeSync
	}

	if s.GitHubUsername, err = storage.GetString(ctx, local, storage.KeyGitHubUsername); err != nil {
		return s, errors.StorageError(err, "failed to read username")
	}
	return s, nil
}

// setting describes a user-editable key
type setting struct {
	key   string
	parse func(string) (interface{}, error)
}

var settings = map[string]setting{
	"backend-url": {key: storage.KeyBackendURL, parse: parseURL},
	"use-backend": {key: storage.KeyUseBackendAPI, parse: parseBool},
	"token-scope": {key: storage.KeyTokenScope, parse: parseScope},
	"username":    {key: storage.KeyGitHubUsername, parse: parseString},
}

// SettingNames lists the names accepted by SetSetting
func SettingNames() []string {
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetSetting validates value and writes it to the local scope.
// An empty value removes the setting.
func SetSetting(ctx context.Context, local storage.Store, name, value string) error {
	def, ok := settings[name]
	if !ok {
		return errors.ValidationErrorf("unknown setting %q (expected one of %s)", name, strings.Join(SettingNames(), ", "))
	}

	if value == "" {
		if err := local.Delete(ctx, def.key); err != nil {
			return errors.StorageError(err, "failed to clear setting")
		}
		return nil
	}

	parsed, err := def.parse(value)
	if err != nil {
		return errors.ValidationErrorf("invalid value for %s: %v", name, err)
	}
	if err := storage.SetJSON(ctx, local, def.key, parsed); err != nil {
		return errors.StorageError(err, "failed to write setting")
	}
	return nil
}

func parseString(v string) (interface{}, error) {
	return strings.TrimSpace(v), nil
}

func parseURL(v string) (interface{}, error) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return nil, fmt.Errorf("must start with http:// or https://")
	}
	return strings.TrimRight(v, "/"), nil
}

func parseBool(v string) (interface{}, error) {
	return strconv.ParseBool(strings.TrimSpace(v))
}

func parseScope(v string) (interface{}, error) {
	switch storage.Scope(strings.TrimSpace(v)) {
	case storage.ScopeLocal, storage.ScopeSync:
		return strings.TrimSpace(v), nil
	}
	return nil, fmt.Errorf("must be local or sync")
}
