package generate

import (
	"strings"
	"testing"

	"github.com/Konard/problem-solving/pkg/models"
)

func TestParseDecomposition_CleanArray(t *testing.T) {
	response := `[
		{"id": "subtask-1", "title": "First", "priority": "high", "complexity": 3, "dependencies": [], "acceptance_criteria": ["does the thing"]},
		{"id": "subtask-2", "title": "Second", "dependencies": ["subtask-1"]}
	]`

	raws, err := ParseDecomposition(response)
	if err != nil {
		t.Fatalf("ParseDecomposition() error = %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("got %d subtasks, want 2", len(raws))
	}
	if raws[0].ID != "subtask-1" || raws[0].Title != "First" {
		t.Errorf("first subtask = %+v", raws[0])
	}
	if int(raws[0].Complexity) != 3 {
		t.Errorf("complexity = %d, want 3", raws[0].Complexity)
	}
	if len(raws[1].Dependencies) != 1 || raws[1].Dependencies[0] != "subtask-1" {
		t.Errorf("dependencies = %v, want [subtask-1]", raws[1].Dependencies)
	}
}

func TestParseDecomposition_ProseWrapped(t *testing.T) {
	response := "Here is the breakdown you asked for:\n\n```json\n" +
		`[{"id": "subtask-1", "title": "Only one"}]` +
		"\n```\n\nLet me know if you want changes."

	raws, err := ParseDecomposition(response)
	if err != nil {
		t.Fatalf("ParseDecomposition() error = %v", err)
	}
	if len(raws) != 1 || raws[0].Title != "Only one" {
		t.Errorf("raws = %+v", raws)
	}
}

func TestParseDecomposition_RepairsBrokenJSON(t *testing.T) {
	// Trailing comma is invalid JSON but repairable.
	response := `[{"id": "subtask-1", "title": "Fixable",},]`

	raws, err := ParseDecomposition(response)
	if err != nil {
		t.Fatalf("ParseDecomposition() error = %v", err)
	}
	if len(raws) != 1 || raws[0].Title != "Fixable" {
		t.Errorf("raws = %+v", raws)
	}
}

func TestParseDecomposition_NoArray(t *testing.T) {
	if _, err := ParseDecomposition("I could not produce a breakdown."); err == nil {
		t.Fatal("expected error for response without a JSON array")
	}
}

func TestParseDecomposition_EmptyArray(t *testing.T) {
	if _, err := ParseDecomposition("[]"); err == nil {
		t.Fatal("expected error for empty subtask list")
	}
}

func TestParseDecomposition_TolerantFields(t *testing.T) {
	// Single strings where lists are expected, numeric string complexity.
	response := `[{
		"id": "subtask-1",
		"title": "Tolerant",
		"complexity": "7",
		"dependencies": "subtask-0",
		"acceptance_criteria": "it works"
	}]`

	raws, err := ParseDecomposition(response)
	if err != nil {
		t.Fatalf("ParseDecomposition() error = %v", err)
	}
	raw := raws[0]
	if int(raw.Complexity) != 7 {
		t.Errorf("complexity = %d, want 7", raw.Complexity)
	}
	if len(raw.Dependencies) != 1 || raw.Dependencies[0] != "subtask-0" {
		t.Errorf("dependencies = %v, want [subtask-0]", raw.Dependencies)
	}
	if len(raw.AcceptanceCriteria) != 1 || raw.AcceptanceCriteria[0] != "it works" {
		t.Errorf("acceptance_criteria = %v, want [it works]", raw.AcceptanceCriteria)
	}
}

func TestParseDecomposition_UnparseableComplexity(t *testing.T) {
	response := `[{"id": "subtask-1", "title": "Odd complexity", "complexity": "very hard"}]`

	raws, err := ParseDecomposition(response)
	if err != nil {
		t.Fatalf("ParseDecomposition() error = %v", err)
	}
	if int(raws[0].Complexity) != 0 {
		t.Errorf("complexity = %d, want 0 fallback", raws[0].Complexity)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced with language tag",
			in:   "```go\nfunc A() {}\n```",
			want: "func A() {}",
		},
		{
			name: "fenced without tag",
			in:   "```\nplain body\n```",
			want: "plain body",
		},
		{
			name: "unfenced passes through",
			in:   "func A() {}",
			want: "func A() {}",
		},
		{
			name: "unterminated fence passes through",
			in:   "```go\nfunc A() {}",
			want: "```go\nfunc A() {}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildFeedback(t *testing.T) {
	if got := BuildFeedback(1, nil); got != "" {
		t.Errorf("first attempt should have no feedback, got %q", got)
	}
	if got := BuildFeedback(2, nil); got != "" {
		t.Errorf("no failures should mean no feedback, got %q", got)
	}

	got := BuildFeedback(2, []string{"missing exported symbol", "body too short"})
	if !strings.Contains(got, "missing exported symbol") || !strings.Contains(got, "body too short") {
		t.Errorf("feedback missing failure reasons: %q", got)
	}
}

func TestBuildArtifactPrompt_InjectsFeedback(t *testing.T) {
	subtask := &models.Subtask{
		ID:                 "subtask-1",
		Title:              "Wire the handler",
		Description:        "Attach the new handler to the router",
		AcceptanceCriteria: []string{"requests reach the handler"},
	}

	first := BuildArtifactPrompt(ArtifactRequest{
		Subtask:  subtask,
		Kind:     models.ArtifactTest,
		TaskText: "Add an endpoint",
		Attempt:  1,
	})
	if strings.Contains(first, "Previous attempt failed") {
		t.Error("first attempt must not carry failure feedback")
	}
	if !strings.Contains(first, "Wire the handler") {
		t.Error("prompt missing subtask title")
	}
	if !strings.Contains(first, "requests reach the handler") {
		t.Error("prompt missing acceptance criteria")
	}

	retry := BuildArtifactPrompt(ArtifactRequest{
		Subtask:        subtask,
		Kind:           models.ArtifactTest,
		TaskText:       "Add an endpoint",
		FailureReasons: []string{"no executable logic found"},
		Attempt:        2,
	})
	if !strings.Contains(retry, "no executable logic found") {
		t.Error("retry prompt missing injected failure reason")
	}
}

func TestBuildArtifactPrompt_SolutionIncludesTest(t *testing.T) {
	subtask := &models.Subtask{ID: "subtask-1", Title: "Implement it"}

	prompt := BuildArtifactPrompt(ArtifactRequest{
		Subtask:      subtask,
		Kind:         models.ArtifactSolution,
		TaskText:     "Do the task",
		TestArtifact: "func TestImplementIt(t *testing.T) { /* body */ }",
		Attempt:      1,
	})
	if !strings.Contains(prompt, "TestImplementIt") {
		t.Error("solution prompt must include the accepted test artifact")
	}
}
