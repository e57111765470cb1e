package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Konard/problem-solving/pkg/models"
)

// Static is a canned Generator for dry runs and tests. It never calls a
// model: the decomposition and artifact bodies are deterministic functions
// of their inputs.
type Static struct {
	// Decomposition overrides the derived decomposition when non-empty.
	Decomposition []RawSubtask
	// Now supplies candidate timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (s *Static) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// GenerateDecomposition implements Generator. Without a canned decomposition
// it derives a minimal plan-implement-verify breakdown from the task text.
func (s *Static) GenerateDecomposition(_ context.Context, taskText string) ([]RawSubtask, error) {
	if len(s.Decomposition) > 0 {
		out := make([]RawSubtask, len(s.Decomposition))
		copy(out, s.Decomposition)
		return out, nil
	}

	summary := truncate(strings.TrimSpace(taskText), 60)
	return []RawSubtask{
		{
			ID:          "subtask-1",
			Title:       "Outline the approach",
			Description: "Sketch the shape of the change for: " + summary,
			Priority:    "high",
			Complexity:  2,
		},
		{
			ID:           "subtask-2",
			Title:        "Implement the core change",
			Description:  "Carry out the main work for: " + summary,
			Priority:     "high",
			Complexity:   5,
			Dependencies: StringList{"subtask-1"},
		},
		{
			ID:           "subtask-3",
			Title:        "Add regression coverage",
			Description:  "Verify the change holds for: " + summary,
			Priority:     "medium",
			Complexity:   3,
			Dependencies: StringList{"subtask-2"},
		},
	}, nil
}

// GenerateArtifact implements Generator with a deterministic artifact body.
func (s *Static) GenerateArtifact(_ context.Context, req ArtifactRequest) (*models.Candidate, error) {
	ident := exportedIdent(req.Subtask.ID)

	var content string
	switch req.Kind {
	case models.ArtifactTest:
		content = fmt.Sprintf(`// Behavior check for %s.
func Test%s(t *testing.T) {
	got, err := %s()
	if err != nil {
		t.Fatalf("unexpected error: %%v", err)
	}
	if got == "" {
		t.Fatal("expected a non-empty result")
	}
}
`, req.Subtask.Title, ident, ident)
	default:
		content = fmt.Sprintf(`// %s carries out: %s.
func %s() (string, error) {
	result := strings.TrimSpace(%q)
	if result == "" {
		return "", errors.New("nothing to produce")
	}
	return result, nil
}
`, ident, req.Subtask.Title, ident, req.Subtask.Title)
	}

	return &models.Candidate{
		Content:   content,
		Kind:      req.Kind,
		Model:     "static",
		CreatedAt: s.now(),
	}, nil
}

// ComposeFreeform implements Generator.
func (s *Static) ComposeFreeform(_ context.Context, req ComposeRequest) (string, error) {
	titles := make([]string, len(req.Sections))
	for i, sec := range req.Sections {
		titles[i] = sec.Title
	}
	return fmt.Sprintf("Combined %d solved subtasks in order: %s.",
		len(req.Sections), strings.Join(titles, "; ")), nil
}

// exportedIdent turns a subtask id into an exported identifier,
// e.g. "subtask-2" -> "Subtask2".
func exportedIdent(id string) string {
	var b strings.Builder
	upper := true
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
			if upper {
				b.WriteRune(r - ('a' - 'A'))
				upper = false
			} else {
				b.WriteRune(r)
			}
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
			upper = false
		case r >= '0' && r <= '9':
			if b.Len() == 0 {
				b.WriteString("Task")
			}
			b.WriteRune(r)
			upper = false
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "Artifact"
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
