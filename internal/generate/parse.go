package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseDecomposition extracts the JSON array from a model response and
// decodes it into raw subtasks. Models wrap their JSON in prose or code
// fences often enough that the parser scans for the outermost array instead
// of decoding the response whole. Structurally broken JSON gets one repair
// pass before the parse is given up on.
func ParseDecomposition(response string) ([]RawSubtask, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON array found in response (got %d chars): %q", len(response), preview)
	}
	jsonStr := response[jsonStart : jsonEnd+1]

	var raws []RawSubtask
	if err := json.Unmarshal([]byte(jsonStr), &raws); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			return nil, fmt.Errorf("unmarshal subtask JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &raws); err != nil {
			return nil, fmt.Errorf("unmarshal repaired subtask JSON: %w", err)
		}
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("empty subtask list returned")
	}

	return raws, nil
}

// StripCodeFence removes a surrounding markdown code fence from generated
// content, including an optional language tag on the opening fence. Content
// without a fence passes through unchanged.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	// Drop the opening fence line (``` or ```go).
	newline := strings.Index(trimmed, "\n")
	if newline == -1 {
		return text
	}
	body := trimmed[newline+1:]

	closing := strings.LastIndex(body, "```")
	if closing == -1 {
		return text
	}

	return strings.TrimSpace(body[:closing])
}
