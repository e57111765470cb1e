package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konard/problem-solving/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify psolve configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/psolve/config.yaml
Project-specific overrides can be placed in .psolve.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskSecret(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", orUnset(cfg.Anthropic.Model))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", orUnset(cfg.Anthropic.AWSRegion))
	fmt.Printf("anthropic.aws_profile: %s\n", orUnset(cfg.Anthropic.AWSProfile))
	fmt.Printf("github.token: %s\n", config.MaskSecret(cfg.GitHub.Token))
	fmt.Printf("github.owner: %s\n", orUnset(cfg.GitHub.Owner))
	fmt.Printf("github.repo: %s\n", orUnset(cfg.GitHub.Repo))
	fmt.Printf("defaults.tracker: %s\n", cfg.Defaults.Tracker)
	fmt.Printf("defaults.max_attempts: %d\n", cfg.Defaults.MaxAttempts)
	fmt.Printf("defaults.concurrency: %d\n", cfg.Defaults.Concurrency)
	fmt.Printf("defaults.freeform_merge: %t\n", cfg.Defaults.FreeformMerge)
	fmt.Printf("search.rules_path: %s\n", orUnset(cfg.Search.RulesPath))
	fmt.Printf("timeouts.run: %s\n", cfg.Timeouts.Run)
	fmt.Printf("timeouts.tracker: %s\n", cfg.Timeouts.Tracker)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskSecret(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return orUnset(cfg.Anthropic.Model), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return orUnset(cfg.Anthropic.AWSRegion), nil
	case "anthropic.aws_profile":
		return orUnset(cfg.Anthropic.AWSProfile), nil
	case "github.token":
		return config.MaskSecret(cfg.GitHub.Token), nil
	case "github.owner":
		return orUnset(cfg.GitHub.Owner), nil
	case "github.repo":
		return orUnset(cfg.GitHub.Repo), nil
	case "defaults.tracker":
		return cfg.Defaults.Tracker, nil
	case "defaults.max_attempts":
		return strconv.Itoa(cfg.Defaults.MaxAttempts), nil
	case "defaults.concurrency":
		return strconv.Itoa(cfg.Defaults.Concurrency), nil
	case "defaults.freeform_merge":
		return strconv.FormatBool(cfg.Defaults.FreeformMerge), nil
	case "search.rules_path":
		return orUnset(cfg.Search.RulesPath), nil
	case "timeouts.run":
		return cfg.Timeouts.Run.String(), nil
	case "timeouts.tracker":
		return cfg.Timeouts.Tracker.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for anthropic.use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "github.token":
		cfg.GitHub.Token = value
	case "github.owner":
		cfg.GitHub.Owner = value
	case "github.repo":
		cfg.GitHub.Repo = value
	case "defaults.tracker":
		if !config.ValidTracker(value) {
			return fmt.Errorf("invalid tracker %q: must be dryrun, local, or github", value)
		}
		cfg.Defaults.Tracker = value
	case "defaults.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_attempts: %w", err)
		}
		cfg.Defaults.MaxAttempts = n
	case "defaults.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for concurrency: %w", err)
		}
		cfg.Defaults.Concurrency = n
	case "defaults.freeform_merge":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for defaults.freeform_merge: %w", err)
		}
		cfg.Defaults.FreeformMerge = b
	case "search.rules_path":
		cfg.Search.RulesPath = value
	case "timeouts.run":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.run: %w", err)
		}
		cfg.Timeouts.Run = d
	case "timeouts.tracker":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.tracker: %w", err)
		}
		cfg.Timeouts.Tracker = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// orUnset substitutes a placeholder for empty display values.
func orUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
