// Package generate provides the model-backed generation collaborator for the
// decomposition and candidate-search pipeline.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Konard/problem-solving/pkg/models"
)

// Generator produces decomposition proposals, candidate artifacts, and
// freeform composition text. It is the only collaborator that talks to a
// language model; everything downstream treats its output as opaque content.
type Generator interface {
	// GenerateDecomposition proposes raw subtasks for a problem statement.
	GenerateDecomposition(ctx context.Context, taskText string) ([]RawSubtask, error)

	// GenerateArtifact produces one candidate artifact for a subtask.
	// Failures worth retrying are returned as *GenerationError.
	GenerateArtifact(ctx context.Context, req ArtifactRequest) (*models.Candidate, error)

	// ComposeFreeform produces a narrative description of how the solved
	// artifacts fit together.
	ComposeFreeform(ctx context.Context, req ComposeRequest) (string, error)
}

// GenerationError marks a transient generation failure. The search engine
// records it against the current attempt and moves on; it never aborts a
// whole search.
type GenerationError struct {
	// Op names the generation call that failed (e.g. "decomposition").
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ArtifactRequest describes one candidate-generation call.
type ArtifactRequest struct {
	// Subtask is the subtask the artifact is for.
	Subtask *models.Subtask
	// Kind selects a test or solution artifact.
	Kind models.ArtifactKind
	// TaskText is the original problem statement, for context.
	TaskText string
	// TestArtifact carries the previously accepted test content when a
	// solution is being generated.
	TestArtifact string
	// FailureReasons lists validation failures from earlier attempts, oldest
	// first. Empty on the first attempt.
	FailureReasons []string
	// Attempt is the 1-based attempt number.
	Attempt int
}

// ComposeSection pairs one solved subtask with its artifact content.
type ComposeSection struct {
	Title   string
	Content string
}

// ComposeRequest asks for a freeform narrative merge of solved artifacts.
// Sections are already in composition order.
type ComposeRequest struct {
	TaskText string
	Sections []ComposeSection
}

// RawSubtask is the loosely typed JSON shape a model returns for one subtask.
// Field types are tolerant: a single string passes where a list is expected,
// and a numeric string passes as complexity. Normalization into a
// models.Subtask happens in the decompose package.
type RawSubtask struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Priority           string     `json:"priority"`
	Complexity         FlexInt    `json:"complexity"`
	Dependencies       StringList `json:"dependencies"`
	AcceptanceCriteria StringList `json:"acceptance_criteria"`
}

// StringList decodes a JSON array of strings, a single string, or a mixed
// array (keeping only the string members).
type StringList []string

// UnmarshalJSON implements tolerant list decoding.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if strings.TrimSpace(one) == "" {
			*s = nil
		} else {
			*s = StringList{one}
		}
		return nil
	}

	// Mixed array: keep the string members, ignore the rest.
	var mixed []interface{}
	if err := json.Unmarshal(data, &mixed); err == nil {
		out := make(StringList, 0, len(mixed))
		for _, v := range mixed {
			if str, ok := v.(string); ok {
				out = append(out, str)
			}
		}
		*s = out
		return nil
	}

	return fmt.Errorf("cannot decode %s as a string list", string(data))
}

// FlexInt decodes a JSON number or a numeric string. Anything unparseable
// decodes as zero rather than failing the whole document.
type FlexInt int

// UnmarshalJSON implements tolerant integer decoding.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = FlexInt(int(f))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		str = strings.TrimSpace(str)
		if parsed, err := strconv.ParseFloat(str, 64); err == nil {
			*n = FlexInt(int(parsed))
			return nil
		}
	}

	*n = 0
	return nil
}
