package compose

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Konard/problem-solving/pkg/models"
)

func solvedFixture() []Solved {
	return []Solved{
		{
			Subtask:   &models.Subtask{ID: "subtask-1", Title: "Design the API", Priority: models.PriorityHigh},
			Candidate: &models.Candidate{Kind: models.ArtifactSolution, Content: "type API struct{}\n"},
		},
		{
			Subtask:   &models.Subtask{ID: "subtask-2", Title: "Implement the core", Priority: models.PriorityHigh},
			Candidate: &models.Candidate{Kind: models.ArtifactSolution, Content: "func Run() error { return nil }\n"},
		},
		{
			Subtask:   &models.Subtask{ID: "subtask-3", Title: "Add regression coverage", Priority: models.PriorityMedium},
			Candidate: &models.Candidate{Kind: models.ArtifactSolution, Content: "func TestRun(t *testing.T) {}\n"},
		},
	}
}

func TestCompose_OrderAndAnnotation(t *testing.T) {
	result, err := New().Compose("Build the widget service", solvedFixture())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if !strings.HasPrefix(result.Content, "Task: Build the widget service\n") {
		t.Errorf("content should open with the task line:\n%s", result.Content)
	}

	// Each artifact appears under its header, in input order.
	headers := []string{
		"=== subtask-1: Design the API ===",
		"=== subtask-2: Implement the core ===",
		"=== subtask-3: Add regression coverage ===",
	}
	last := -1
	for _, h := range headers {
		idx := strings.Index(result.Content, h)
		if idx == -1 {
			t.Fatalf("content missing header %q", h)
		}
		if idx < last {
			t.Errorf("header %q out of order", h)
		}
		last = idx
	}

	if !strings.Contains(result.Content, "func Run() error") {
		t.Error("content missing an artifact body")
	}
}

func TestCompose_Stats(t *testing.T) {
	solved := solvedFixture()
	result, err := New().Compose("task", solved)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if result.Stats.ArtifactCount != 3 {
		t.Errorf("ArtifactCount = %d, want 3", result.Stats.ArtifactCount)
	}

	wantBytes := 0
	for _, s := range solved {
		wantBytes += len(s.Candidate.Content)
	}
	if result.Stats.TotalBytes != wantBytes {
		t.Errorf("TotalBytes = %d, want %d", result.Stats.TotalBytes, wantBytes)
	}

	if result.Stats.PerPriority[models.PriorityHigh] != 2 || result.Stats.PerPriority[models.PriorityMedium] != 1 {
		t.Errorf("PerPriority = %v", result.Stats.PerPriority)
	}
}

func TestCompose_Manifest(t *testing.T) {
	result, err := New().Compose("Build the widget service", solvedFixture())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	var m struct {
		Task      string `yaml:"task"`
		Artifacts []struct {
			Position int    `yaml:"position"`
			Subtask  string `yaml:"subtask"`
			Kind     string `yaml:"kind"`
			Bytes    int    `yaml:"bytes"`
		} `yaml:"artifacts"`
	}
	if err := yaml.Unmarshal([]byte(result.Manifest), &m); err != nil {
		t.Fatalf("manifest is not valid YAML: %v\n%s", err, result.Manifest)
	}

	if m.Task != "Build the widget service" {
		t.Errorf("manifest task = %q", m.Task)
	}
	if len(m.Artifacts) != 3 {
		t.Fatalf("manifest artifacts = %d, want 3", len(m.Artifacts))
	}
	for i, a := range m.Artifacts {
		if a.Position != i+1 {
			t.Errorf("artifact %d position = %d", i, a.Position)
		}
		if a.Kind != "solution" {
			t.Errorf("artifact %d kind = %q", i, a.Kind)
		}
		if a.Bytes <= 0 {
			t.Errorf("artifact %d bytes = %d", i, a.Bytes)
		}
	}
	if m.Artifacts[0].Subtask != "subtask-1" || m.Artifacts[2].Subtask != "subtask-3" {
		t.Errorf("manifest order wrong: %+v", m.Artifacts)
	}
}

func TestCompose_Empty(t *testing.T) {
	_, err := New().Compose("task", nil)
	if !errors.Is(err, ErrNoSolvedArtifacts) {
		t.Errorf("error = %v, want ErrNoSolvedArtifacts", err)
	}
}

func TestCompose_IncompleteInput(t *testing.T) {
	solved := []Solved{{Subtask: &models.Subtask{ID: "subtask-1"}, Candidate: nil}}
	if _, err := New().Compose("task", solved); err == nil {
		t.Error("expected an error for a missing candidate")
	}
}
