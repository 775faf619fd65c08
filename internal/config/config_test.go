package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/gitfolio/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 20, cfg.Analysis.DefaultCount)
	assert.Equal(t, 100, cfg.Analysis.MaxCount)
	assert.Equal(t, 60*time.Second, cfg.Analysis.Timeout)
	assert.True(t, cfg.GitHub.AuthorFilter)
	assert.Equal(t, "bolt", cfg.Storage.LocalDriver)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: gemini
  model: gemini-2.0-flash
analysis:
  default_count: 50
  timeout: 90s
output:
  language: ko
storage:
  local_driver: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 50, cfg.Analysis.DefaultCount)
	assert.Equal(t, 90*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, "ko", cfg.Output.Language)
	assert.Equal(t, "sqlite", cfg.Storage.LocalDriver)
	// untouched keys keep their defaults
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
	assert.Equal(t, "https://api.github.com/graphql", cfg.GitHub.GraphQLURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GITFOLIO_LLM_PROVIDER", "openai")
	t.Setenv("GITFOLIO_BACKEND_URL", "https://gitfolio.example")
	t.Setenv("GITHUB_RATE_LIMIT", "3")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "https://gitfolio.example", cfg.Backend.URL)
	assert.Equal(t, 3, cfg.GitHub.RateLimit)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.SyncURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }},
		{"unknown format", func(c *Config) { c.Output.Format = "html" }},
		{"unknown language", func(c *Config) { c.Output.Language = "fr" }},
		{"max count above ceiling", func(c *Config) { c.Analysis.MaxCount = 101 }},
		{"default above max", func(c *Config) { c.Analysis.DefaultCount = 101 }},
		{"zero timeout", func(c *Config) { c.Analysis.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrConfig))
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.LLM.Provider = "openai"
	cfg.Analysis.Timeout = 45 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.LLM.Provider)
	assert.Equal(t, 45*time.Second, loaded.Analysis.Timeout)
}
