package search

import (
	"strings"

	"github.com/Konard/problem-solving/pkg/models"
)

// Score rates a candidate for best-of-exhausted selection. Four quality
// signals add ten points each (executable logic, exported symbol, structured
// comment, error handling), a clean placeholder check adds ten more, a body
// below the minimum length costs ten, and a low-effort phrase costs five.
// The value only means anything relative to other candidates for the same
// subtask.
func Score(c *models.Candidate, cfg RuleConfig) int {
	score := 0

	if hasExecutableLogic(c.Content, cfg) {
		score += 10
	}
	if hasExportedSymbol(c.Content, cfg) {
		score += 10
	}
	if hasStructuredComment(c.Content, cfg) {
		score += 10
	}
	if hasErrorHandling(c.Content, cfg) {
		score += 10
	}
	if _, found := findMarker(c.Content, cfg.PlaceholderMarkers); !found {
		score += 10
	}
	if len(strings.TrimSpace(c.Content)) < cfg.MinBodyLength {
		score -= 10
	}
	if _, found := findMarker(c.Content, cfg.LowEffortMarkers); found {
		score -= 5
	}

	return score
}
