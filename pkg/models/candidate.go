package models

import "time"

// ArtifactKind identifies what a candidate artifact is meant to be.
type ArtifactKind string

const (
	// ArtifactTest is a verification artifact generated before the solution.
	ArtifactTest ArtifactKind = "test"
	// ArtifactSolution is the implementation artifact for a subtask.
	ArtifactSolution ArtifactKind = "solution"
)

// Valid returns true if the kind is a known value.
func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactTest, ArtifactSolution:
		return true
	default:
		return false
	}
}

// TokenUsage records generator token consumption for one candidate.
type TokenUsage struct {
	// Input is the number of prompt tokens consumed.
	Input int64 `json:"input"`
	// Output is the number of completion tokens produced.
	Output int64 `json:"output"`
}

// Total returns the combined token count.
func (u TokenUsage) Total() int64 {
	return u.Input + u.Output
}

// Candidate is one generated artifact produced during a search attempt.
// The content is an opaque blob; the core only inspects it through
// configurable structural rules.
type Candidate struct {
	// Content is the raw artifact body.
	Content string `json:"content"`
	// Kind identifies whether this is a test or solution artifact.
	Kind ArtifactKind `json:"kind"`
	// Model names the generator model that produced the candidate, if known.
	Model string `json:"model,omitempty"`
	// Tokens records generator usage for this candidate.
	Tokens TokenUsage `json:"tokens"`
	// CreatedAt is when the candidate was produced.
	CreatedAt time.Time `json:"created_at"`
}
