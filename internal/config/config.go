// Package config handles configuration loading and management for psolve.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Tracker modes selectable through configuration.
const (
	// TrackerDryRun records calls in memory and fabricates ids.
	TrackerDryRun = "dryrun"
	// TrackerLocal registers records in a local SQLite registry.
	TrackerLocal = "local"
	// TrackerGitHub registers records as GitHub issues.
	TrackerGitHub = "github"
)

// Config holds all configuration for psolve.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Search    SearchConfig    `mapstructure:"search"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model names the Claude model; empty means the client default.
	Model string `mapstructure:"model"`
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// GitHubConfig holds settings for the GitHub tracker.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`
}

// DefaultsConfig holds default values for psolve runs.
type DefaultsConfig struct {
	// Tracker selects the tracker backend: dryrun, local, or github.
	Tracker string `mapstructure:"tracker"`
	// MaxAttempts bounds generator calls per candidate search.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Concurrency bounds parallel searches within one dependency batch.
	Concurrency int `mapstructure:"concurrency"`
	// FreeformMerge asks the generator for a narrative merge after
	// composition.
	FreeformMerge bool `mapstructure:"freeform_merge"`
}

// SearchConfig holds candidate-validation settings.
type SearchConfig struct {
	// RulesPath points at a YAML file overriding the validation rule
	// markers. Empty means built-in defaults.
	RulesPath string `mapstructure:"rules_path"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// Run caps a whole workflow run.
	Run time.Duration `mapstructure:"run"`
	// Tracker caps each tracker HTTP call.
	Tracker time.Duration `mapstructure:"tracker"`
}

// ValidTracker reports whether mode names a known tracker backend.
func ValidTracker(mode string) bool {
	switch mode {
	case TrackerDryRun, TrackerLocal, TrackerGitHub:
		return true
	default:
		return false
	}
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GITHUB_TOKEN, PSOLVE_TRACKER)
// 2. Project config (.psolve.yaml in current directory or parent)
// 3. User config (~/.config/psolve/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("defaults.tracker", "PSOLVE_TRACKER")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in credentials
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.GitHub.Token = expandEnv(cfg.GitHub.Token)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.GitHub.Token = expandEnv(cfg.GitHub.Token)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("github.token", cfg.GitHub.Token)
	v.Set("github.owner", cfg.GitHub.Owner)
	v.Set("github.repo", cfg.GitHub.Repo)
	v.Set("defaults.tracker", cfg.Defaults.Tracker)
	v.Set("defaults.max_attempts", cfg.Defaults.MaxAttempts)
	v.Set("defaults.concurrency", cfg.Defaults.Concurrency)
	v.Set("defaults.freeform_merge", cfg.Defaults.FreeformMerge)
	v.Set("search.rules_path", cfg.Search.RulesPath)
	v.Set("timeouts.run", cfg.Timeouts.Run.String())
	v.Set("timeouts.tracker", cfg.Timeouts.Tracker.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	// GitHub defaults
	v.SetDefault("github.token", "")
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")

	// Run defaults
	v.SetDefault("defaults.tracker", TrackerDryRun)
	v.SetDefault("defaults.max_attempts", 3)
	v.SetDefault("defaults.concurrency", 1)
	v.SetDefault("defaults.freeform_merge", false)

	// Search defaults
	v.SetDefault("search.rules_path", "")

	// Timeout defaults
	v.SetDefault("timeouts.run", "30m")
	v.SetDefault("timeouts.tracker", "30s")
}

// getUserConfigDir returns the XDG config directory for psolve.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "psolve")
	}

	// Fall back to ~/.config/psolve
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "psolve")
	}
	return filepath.Join(home, ".config", "psolve")
}

// findProjectConfig searches for .psolve.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".psolve.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			APIKey: "",
		},
		Defaults: DefaultsConfig{
			Tracker:     TrackerDryRun,
			MaxAttempts: 3,
			Concurrency: 1,
		},
		Timeouts: TimeoutsConfig{
			Run:     30 * time.Minute,
			Tracker: 30 * time.Second,
		},
	}
}
