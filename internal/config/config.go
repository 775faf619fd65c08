package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/storage"
)

// Config holds all configuration settings
type Config struct {
	// Storage configuration
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// GitHub configuration
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`

	// LLM provider settings
	LLM LLMConfig `mapstructure:"llm" yaml:"llm"`

	// Remote backend defaults (the backendUrl setting wins when present)
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`

	// Analysis limits
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`

	// Output rendering
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Logging
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

type StorageConfig struct {
	LocalDriver string `mapstructure:"local_driver" yaml:"local_driver"` // "bolt", "sqlite", "memory"
	LocalPath   string `mapstructure:"local_path" yaml:"local_path"`
	SyncURL     string `mapstructure:"sync_url" yaml:"sync_url"` // redis:// or postgres://, empty disables sync
	UseKeychain bool   `mapstructure:"use_keychain" yaml:"use_keychain"`
}

type GitHubConfig struct {
	GraphQLURL   string `mapstructure:"graphql_url" yaml:"graphql_url"`
	APIURL       string `mapstructure:"api_url" yaml:"api_url"`
	RateLimit    int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	AuthorFilter bool   `mapstructure:"author_filter" yaml:"author_filter"`
}

type LLMConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"` // "anthropic", "openai", "gemini"
	Model     string `mapstructure:"model" yaml:"model"`       // empty = provider default
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
}

type BackendConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AnalysisConfig struct {
	DefaultCount    int           `mapstructure:"default_count" yaml:"default_count"`
	MaxCount        int           `mapstructure:"max_count" yaml:"max_count"`
	MaxMessageChars int           `mapstructure:"max_message_chars" yaml:"max_message_chars"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`
}

type OutputConfig struct {
	Format   string `mapstructure:"format" yaml:"format"`     // "markdown", "json", "yaml"
	Language string `mapstructure:"language" yaml:"language"` // "en", "ko"
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Dir returns the per-user configuration directory
func Dir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".gitfolio")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			LocalDriver: "bolt",
			LocalPath:   filepath.Join(Dir(), "local.db"),
			UseKeychain: true,
		},
		GitHub: GitHubConfig{
			GraphQLURL:   "https://api.github.com/graphql",
			APIURL:       "https://api.github.com/",
			RateLimit:    10, // 10 requests per second
			AuthorFilter: true,
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			MaxTokens: 1500,
		},
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Analysis: AnalysisConfig{
			DefaultCount:    20,
			MaxCount:        100,
			MaxMessageChars: 2000,
			Timeout:         60 * time.Second,
			Concurrency:     1,
		},
		Output: OutputConfig{
			Format:   "markdown",
			Language: "en",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// setDefaults registers each leaf key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.local_driver", cfg.Storage.LocalDriver)
	v.SetDefault("storage.local_path", cfg.Storage.LocalPath)
	v.SetDefault("storage.sync_url", cfg.Storage.SyncURL)
	v.SetDefault("storage.use_keychain", cfg.Storage.UseKeychain)

	v.SetDefault("github.graphql_url", cfg.GitHub.GraphQLURL)
	v.SetDefault("github.api_url", cfg.GitHub.APIURL)
	v.SetDefault("github.rate_limit", cfg.GitHub.RateLimit)
	v.SetDefault("github.author_filter", cfg.GitHub.AuthorFilter)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)

	v.SetDefault("backend.url", cfg.Backend.URL)
	v.SetDefault("backend.timeout", cfg.Backend.Timeout)

	v.SetDefault("analysis.default_count", cfg.Analysis.DefaultCount)
	v.SetDefault("analysis.max_count", cfg.Analysis.MaxCount)
	v.SetDefault("analysis.max_message_chars", cfg.Analysis.MaxMessageChars)
	v.SetDefault("analysis.timeout", cfg.Analysis.Timeout)
	v.SetDefault("analysis.concurrency", cfg.Analysis.Concurrency)

	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.language", cfg.Output.Language)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	// GITFOLIO_LLM_PROVIDER -> llm.provider
	v.SetEnvPrefix("GITFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".gitfolio")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to read config")
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to unmarshal config")
	}

	applyEnvOverrides(cfg)
	cfg.Storage.LocalPath = expandPath(cfg.Storage.LocalPath)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeEnvFile := filepath.Join(Dir(), ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies conventional, unprefixed environment variables
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("GITHUB_GRAPHQL_URL"); url != "" {
		cfg.GitHub.GraphQLURL = url
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.Atoi(rateLimit); err == nil {
			cfg.GitHub.RateLimit = rate
		}
	}
	if url := os.Getenv("REDIS_URL"); url != "" && cfg.Storage.SyncURL == "" {
		cfg.Storage.SyncURL = url
	}
	if url := os.Getenv("ANTHROPIC_BASE_URL"); url != "" && cfg.LLM.Provider == "anthropic" {
		cfg.LLM.BaseURL = url
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// Validate checks enumerations and bounds
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "gemini":
	default:
		return errors.ConfigErrorf("unknown llm.provider %q (expected anthropic, openai or gemini)", c.LLM.Provider)
	}

	switch c.Output.Format {
	case "markdown", "json", "yaml":
	default:
		return errors.ConfigErrorf("unknown output.format %q", c.Output.Format)
	}

	switch c.Output.Language {
	case "en", "ko":
	default:
		return errors.ConfigErrorf("unknown output.language %q", c.Output.Language)
	}

	if c.Analysis.MaxCount < 1 || c.Analysis.MaxCount > 100 {
		return errors.ConfigErrorf("analysis.max_count must be between 1 and 100, got %d", c.Analysis.MaxCount)
	}
	if c.Analysis.DefaultCount < 1 || c.Analysis.DefaultCount > c.Analysis.MaxCount {
		return errors.ConfigErrorf("analysis.default_count must be between 1 and %d, got %d", c.Analysis.MaxCount, c.Analysis.DefaultCount)
	}
	if c.Analysis.Timeout <= 0 {
		return errors.ConfigErrorf("analysis.timeout must be positive")
	}
	if c.Analysis.Concurrency < 1 {
		c.Analysis.Concurrency = 1
	}
	if c.GitHub.RateLimit < 1 {
		c.GitHub.RateLimit = 1
	}
	return nil
}

// StorageOptions converts the storage section for storage.Open
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		LocalDriver: c.Storage.LocalDriver,
		LocalPath:   c.Storage.LocalPath,
		SyncURL:     c.Storage.SyncURL,
		UseKeychain: c.Storage.UseKeychain,
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, c)
	// durations as "60s" rather than nanoseconds
	v.SetDefault("backend.timeout", c.Backend.Timeout.String())
	v.SetDefault("analysis.timeout", c.Analysis.Timeout.String())

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
