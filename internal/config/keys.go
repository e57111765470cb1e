package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no Anthropic API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// ErrNoGitHubToken is returned when the GitHub tracker is selected but no
// token is configured.
var ErrNoGitHubToken = errors.New("no GitHub token configured")

// GetAPIKey returns the Anthropic API key from the configuration.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config) (string, error) {
	// First check environment variable directly
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}

	// Then check config
	if cfg != nil && cfg.Anthropic.APIKey != "" {
		// Expand any remaining env var references
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// GetGitHubToken returns the GitHub token from the configuration.
// It checks in order: environment variable, config file.
func GetGitHubToken(cfg *Config) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		token := os.ExpandEnv(cfg.GitHub.Token)
		if token != "" && !strings.HasPrefix(token, "${") {
			return token, nil
		}
	}

	return "", ErrNoGitHubToken
}

// ValidateAPIKey performs basic validation on an API key.
// It checks format but does not verify the key with Anthropic's API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	// Anthropic API keys start with "sk-ant-"
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}

	// Keys should be reasonably long
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskSecret returns a masked version of a credential for display.
// Shows the first 7 characters and last 4 characters.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}

	if len(secret) <= 15 {
		return "***"
	}

	return secret[:7] + "..." + secret[len(secret)-4:]
}

// KeySource represents where a credential was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the Anthropic API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return KeySourceEnv
	}

	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}

// GetGitHubTokenSource returns where the GitHub token was sourced from.
func GetGitHubTokenSource(cfg *Config) KeySource {
	if os.Getenv("GITHUB_TOKEN") != "" {
		return KeySourceEnv
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		token := os.ExpandEnv(cfg.GitHub.Token)
		if token != "" && !strings.HasPrefix(token, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}
