package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/Konard/problem-solving/pkg/models"
)

func TestStatic_GenerateDecomposition_Derived(t *testing.T) {
	gen := &Static{}

	raws, err := gen.GenerateDecomposition(context.Background(), "Add a health endpoint")
	if err != nil {
		t.Fatalf("GenerateDecomposition() error = %v", err)
	}
	if len(raws) != 3 {
		t.Fatalf("got %d subtasks, want 3", len(raws))
	}
	if raws[0].ID != "subtask-1" {
		t.Errorf("first id = %q, want subtask-1", raws[0].ID)
	}
	if len(raws[1].Dependencies) != 1 || raws[1].Dependencies[0] != "subtask-1" {
		t.Errorf("second subtask dependencies = %v", raws[1].Dependencies)
	}
}

func TestStatic_GenerateDecomposition_Canned(t *testing.T) {
	gen := &Static{
		Decomposition: []RawSubtask{{ID: "only", Title: "Single step"}},
	}

	raws, err := gen.GenerateDecomposition(context.Background(), "anything")
	if err != nil {
		t.Fatalf("GenerateDecomposition() error = %v", err)
	}
	if len(raws) != 1 || raws[0].ID != "only" {
		t.Errorf("raws = %+v, want the canned decomposition", raws)
	}
}

func TestStatic_GenerateArtifact(t *testing.T) {
	gen := &Static{}
	subtask := &models.Subtask{ID: "subtask-2", Title: "Implement the core change"}

	for _, kind := range []models.ArtifactKind{models.ArtifactTest, models.ArtifactSolution} {
		cand, err := gen.GenerateArtifact(context.Background(), ArtifactRequest{
			Subtask: subtask,
			Kind:    kind,
			Attempt: 1,
		})
		if err != nil {
			t.Fatalf("GenerateArtifact(%s) error = %v", kind, err)
		}
		if cand.Kind != kind {
			t.Errorf("candidate kind = %q, want %q", cand.Kind, kind)
		}
		if !strings.Contains(cand.Content, "Subtask2") {
			t.Errorf("%s artifact missing derived identifier:\n%s", kind, cand.Content)
		}
		if !strings.Contains(cand.Content, "func ") {
			t.Errorf("%s artifact has no function body:\n%s", kind, cand.Content)
		}
	}
}

func TestStatic_ArtifactsAreDeterministic(t *testing.T) {
	gen := &Static{}
	subtask := &models.Subtask{ID: "subtask-1", Title: "Stable output"}
	req := ArtifactRequest{Subtask: subtask, Kind: models.ArtifactSolution, Attempt: 1}

	first, err := gen.GenerateArtifact(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateArtifact() error = %v", err)
	}
	second, err := gen.GenerateArtifact(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateArtifact() error = %v", err)
	}
	if first.Content != second.Content {
		t.Error("static artifacts should be identical across calls")
	}
}

func TestStatic_ComposeFreeform(t *testing.T) {
	gen := &Static{}

	text, err := gen.ComposeFreeform(context.Background(), ComposeRequest{
		TaskText: "Do the task",
		Sections: []ComposeSection{
			{Title: "First piece"},
			{Title: "Second piece"},
		},
	})
	if err != nil {
		t.Fatalf("ComposeFreeform() error = %v", err)
	}
	if !strings.Contains(text, "First piece") || !strings.Contains(text, "Second piece") {
		t.Errorf("narrative missing section titles: %q", text)
	}
}

func TestExportedIdent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"subtask id", "subtask-2", "Subtask2"},
		{"multi word", "fix-the-bug", "FixTheBug"},
		{"already capitalized", "Alpha", "Alpha"},
		{"leading digit gets a prefix", "2-fix", "Task2Fix"},
		{"empty falls back", "", "Artifact"},
		{"symbols only falls back", "--!!", "Artifact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exportedIdent(tt.in); got != tt.want {
				t.Errorf("exportedIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
