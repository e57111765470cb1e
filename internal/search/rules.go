package search

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/Konard/problem-solving/pkg/models"
)

// Rule is one structural check applied to a candidate. Rules never execute
// candidate content; they only inspect its text.
type Rule interface {
	// Name identifies the rule inside failure reasons.
	Name() string
	// Check returns nil when the candidate passes, or an error naming the
	// problem.
	Check(c *models.Candidate) error
}

// RuleConfig drives marker matching for the default rules and the
// best-of-exhausted scoring.
type RuleConfig struct {
	LogicMarkers       []string `yaml:"logic_markers"`
	PlaceholderMarkers []string `yaml:"placeholder_markers"`
	ExportMarkers      []string `yaml:"export_markers"`
	CommentMarkers     []string `yaml:"comment_markers"`
	ErrorMarkers       []string `yaml:"error_markers"`
	LowEffortMarkers   []string `yaml:"low_effort_markers"`
	MinBodyLength      int      `yaml:"min_body_length"`
}

// DefaultRuleConfig returns the built-in marker lists and thresholds.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		LogicMarkers:       append([]string{}, DefaultLogicMarkers...),
		PlaceholderMarkers: append([]string{}, DefaultPlaceholderMarkers...),
		ExportMarkers:      append([]string{}, DefaultExportMarkers...),
		CommentMarkers:     append([]string{}, DefaultCommentMarkers...),
		ErrorMarkers:       append([]string{}, DefaultErrorMarkers...),
		LowEffortMarkers:   append([]string{}, DefaultLowEffortMarkers...),
		MinBodyLength:      DefaultMinBodyLength,
	}
}

// rulesFile is the on-disk shape of a rules configuration file.
type rulesFile struct {
	Rules struct {
		LogicMarkers       []string `yaml:"logic_markers"`
		PlaceholderMarkers []string `yaml:"placeholder_markers"`
		ExportMarkers      []string `yaml:"export_markers"`
		CommentMarkers     []string `yaml:"comment_markers"`
		ErrorMarkers       []string `yaml:"error_markers"`
		LowEffortMarkers   []string `yaml:"low_effort_markers"`
		MinBodyLength      int      `yaml:"min_body_length"`
	} `yaml:"rules"`
}

// LoadRuleConfig reads a rules file and merges it over the defaults: marker
// lists extend the built-in ones, the body-length threshold replaces it when
// set.
func LoadRuleConfig(configPath string) (RuleConfig, error) {
	cfg := DefaultRuleConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse rules config: %w", err)
	}

	cfg.LogicMarkers = append(cfg.LogicMarkers, file.Rules.LogicMarkers...)
	cfg.PlaceholderMarkers = append(cfg.PlaceholderMarkers, file.Rules.PlaceholderMarkers...)
	cfg.ExportMarkers = append(cfg.ExportMarkers, file.Rules.ExportMarkers...)
	cfg.CommentMarkers = append(cfg.CommentMarkers, file.Rules.CommentMarkers...)
	cfg.ErrorMarkers = append(cfg.ErrorMarkers, file.Rules.ErrorMarkers...)
	cfg.LowEffortMarkers = append(cfg.LowEffortMarkers, file.Rules.LowEffortMarkers...)
	if file.Rules.MinBodyLength > 0 {
		cfg.MinBodyLength = file.Rules.MinBodyLength
	}

	return cfg, nil
}

// DefaultRules returns the built-in rule set: executable logic present, no
// leftover placeholder markers, at least one externally usable symbol.
func DefaultRules(cfg RuleConfig) []Rule {
	return []Rule{
		LogicRule{cfg: cfg},
		PlaceholderRule{cfg: cfg},
		ExportRule{cfg: cfg},
	}
}

// LogicRule requires at least one declared unit of executable logic.
type LogicRule struct {
	cfg RuleConfig
}

// NewLogicRule creates a LogicRule with the given configuration.
func NewLogicRule(cfg RuleConfig) LogicRule { return LogicRule{cfg: cfg} }

func (r LogicRule) Name() string { return "executable-logic" }

func (r LogicRule) Check(c *models.Candidate) error {
	if hasExecutableLogic(c.Content, r.cfg) {
		return nil
	}
	return errors.New("no executable logic found")
}

// PlaceholderRule rejects candidates with leftover placeholder markers.
type PlaceholderRule struct {
	cfg RuleConfig
}

// NewPlaceholderRule creates a PlaceholderRule with the given configuration.
func NewPlaceholderRule(cfg RuleConfig) PlaceholderRule { return PlaceholderRule{cfg: cfg} }

func (r PlaceholderRule) Name() string { return "no-placeholder" }

func (r PlaceholderRule) Check(c *models.Candidate) error {
	if marker, found := findMarker(c.Content, r.cfg.PlaceholderMarkers); found {
		return fmt.Errorf("leftover placeholder marker %q", marker)
	}
	return nil
}

// ExportRule requires at least one externally usable symbol.
type ExportRule struct {
	cfg RuleConfig
}

// NewExportRule creates an ExportRule with the given configuration.
func NewExportRule(cfg RuleConfig) ExportRule { return ExportRule{cfg: cfg} }

func (r ExportRule) Name() string { return "exported-symbol" }

func (r ExportRule) Check(c *models.Candidate) error {
	if hasExportedSymbol(c.Content, r.cfg) {
		return nil
	}
	return errors.New("no externally usable symbol found")
}

// findMarker reports the first marker contained in the content,
// case-insensitively.
func findMarker(content string, markers []string) (string, bool) {
	lower := strings.ToLower(content)
	for _, marker := range markers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return marker, true
		}
	}
	return "", false
}

// hasExecutableLogic reports whether the content declares any unit of
// executable logic. Logic markers match case-sensitively since most are
// language keywords.
func hasExecutableLogic(content string, cfg RuleConfig) bool {
	for _, marker := range cfg.LogicMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// hasExportedSymbol reports whether the content exposes something usable
// from outside: an explicit export keyword, or a Go-style declaration whose
// name starts with an uppercase letter.
func hasExportedSymbol(content string, cfg RuleConfig) bool {
	lower := strings.ToLower(content)
	for _, marker := range cfg.ExportMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}

	for _, kw := range []string{"func ", "type ", "var ", "const "} {
		rest := content
		for {
			i := strings.Index(rest, kw)
			if i == -1 {
				break
			}
			rest = rest[i+len(kw):]
			if len(rest) > 0 && rest[0] >= 'A' && rest[0] <= 'Z' {
				return true
			}
		}
	}
	return false
}

// hasStructuredComment reports whether the content carries any commentary.
func hasStructuredComment(content string, cfg RuleConfig) bool {
	for _, marker := range cfg.CommentMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// hasErrorHandling reports whether the content handles failure explicitly.
func hasErrorHandling(content string, cfg RuleConfig) bool {
	_, found := findMarker(content, cfg.ErrorMarkers)
	return found
}
