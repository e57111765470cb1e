// Package compose assembles solved subtask artifacts into one deliverable.
// The policy is deliberately simple: artifacts are concatenated in the order
// given (the caller passes them in topological order), each under a header
// naming its subtask. No semantic merging, conflict detection, or symbol
// deduplication happens here; the result is "what succeeded, assembled",
// and judging it is the reviewer's job.
package compose

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Konard/problem-solving/pkg/models"
)

// ErrNoSolvedArtifacts means there is nothing to compose. Composing zero
// inputs is meaningless, not merely degraded, so this is a hard failure.
var ErrNoSolvedArtifacts = errors.New("no solved artifacts to compose")

// Solved pairs a subtask with its accepted solution artifact.
type Solved struct {
	Subtask   *models.Subtask
	Candidate *models.Candidate
}

// Stats summarizes a composition.
type Stats struct {
	// ArtifactCount is the number of artifacts assembled.
	ArtifactCount int
	// TotalBytes is the combined size of the artifact contents.
	TotalBytes int
	// PerPriority counts assembled artifacts by subtask priority.
	PerPriority map[models.Priority]int
}

// Result is an assembled deliverable.
type Result struct {
	// Content is the concatenated artifact text with per-subtask headers.
	Content string
	// Manifest is a YAML description of the composition: artifact order,
	// subtask ids and titles, sizes. It rides along in the submission body.
	Manifest string
	// Stats summarizes what was assembled.
	Stats Stats
}

// Composer assembles solved artifacts.
type Composer struct{}

// New creates a Composer.
func New() *Composer {
	return &Composer{}
}

// Compose concatenates the solved artifacts in the order given, each under a
// header with its subtask id and title. Returns ErrNoSolvedArtifacts when
// solved is empty.
func (c *Composer) Compose(taskDescription string, solved []Solved) (*Result, error) {
	if len(solved) == 0 {
		return nil, ErrNoSolvedArtifacts
	}

	stats := Stats{
		ArtifactCount: len(solved),
		PerPriority:   make(map[models.Priority]int),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", taskDescription)

	items := make([]manifestItem, 0, len(solved))
	for i, s := range solved {
		if s.Subtask == nil || s.Candidate == nil {
			return nil, fmt.Errorf("solved artifact at position %d is incomplete", i)
		}

		fmt.Fprintf(&b, "\n=== %s: %s ===\n\n", s.Subtask.ID, s.Subtask.Title)
		b.WriteString(strings.TrimRight(s.Candidate.Content, "\n"))
		b.WriteString("\n")

		stats.TotalBytes += len(s.Candidate.Content)
		stats.PerPriority[s.Subtask.Priority]++

		items = append(items, manifestItem{
			Position: i + 1,
			Subtask:  s.Subtask.ID,
			Title:    s.Subtask.Title,
			Kind:     string(s.Candidate.Kind),
			Bytes:    len(s.Candidate.Content),
		})
	}

	manifestYAML, err := yaml.Marshal(manifest{Task: taskDescription, Artifacts: items})
	if err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}

	return &Result{
		Content:  b.String(),
		Manifest: string(manifestYAML),
		Stats:    stats,
	}, nil
}

type manifest struct {
	Task      string         `yaml:"task"`
	Artifacts []manifestItem `yaml:"artifacts"`
}

type manifestItem struct {
	Position int    `yaml:"position"`
	Subtask  string `yaml:"subtask"`
	Title    string `yaml:"title"`
	Kind     string `yaml:"kind"`
	Bytes    int    `yaml:"bytes"`
}
