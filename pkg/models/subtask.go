package models

import "time"

// Priority represents the scheduling priority of a subtask.
type Priority string

const (
	// PriorityHigh marks subtasks that should be surfaced first in reports.
	PriorityHigh Priority = "high"
	// PriorityMedium is the default priority assigned during normalization.
	PriorityMedium Priority = "medium"
	// PriorityLow marks subtasks that can be deferred.
	PriorityLow Priority = "low"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns a sortable rank for the priority (lower is more urgent).
// Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Complexity bounds enforced during normalization.
const (
	// MinComplexity is the lowest complexity a subtask can carry.
	MinComplexity = 1
	// MaxComplexity is the highest complexity a subtask can carry.
	MaxComplexity = 10
)

// ClampComplexity clamps a raw complexity value into [MinComplexity, MaxComplexity].
func ClampComplexity(c int) int {
	if c < MinComplexity {
		return MinComplexity
	}
	if c > MaxComplexity {
		return MaxComplexity
	}
	return c
}

// SubtaskStatus represents the current state of a subtask within a run.
type SubtaskStatus string

const (
	// SubtaskStatusPending indicates the subtask has not been worked on.
	SubtaskStatusPending SubtaskStatus = "pending"
	// SubtaskStatusInProgress indicates a candidate search is underway.
	SubtaskStatusInProgress SubtaskStatus = "in_progress"
	// SubtaskStatusSolved indicates the subtask produced a usable solution artifact.
	SubtaskStatusSolved SubtaskStatus = "solved"
	// SubtaskStatusSkipped indicates a collaborator failure removed the subtask
	// from the run without aborting it.
	SubtaskStatusSkipped SubtaskStatus = "skipped"
	// SubtaskStatusUnresolved indicates every search attempt failed outright.
	SubtaskStatusUnresolved SubtaskStatus = "unresolved"
)

// Valid returns true if the status is a known value.
func (s SubtaskStatus) Valid() bool {
	switch s {
	case SubtaskStatusPending, SubtaskStatusInProgress, SubtaskStatusSolved,
		SubtaskStatusSkipped, SubtaskStatusUnresolved:
		return true
	default:
		return false
	}
}

// Subtask represents one unit of work produced by decomposition.
// Subtasks are immutable after normalization; per-run outcomes are
// attached as SubtaskResult values, never written back into the subtask.
type Subtask struct {
	// ID is the unique identifier within one graph (assigned as subtask-N
	// during normalization when the decomposition omitted it).
	ID string `json:"id"`
	// Title is the short description of the subtask.
	Title string `json:"title"`
	// Description provides detailed information about the subtask.
	Description string `json:"description,omitempty"`
	// Priority is the scheduling priority (defaulted to medium).
	Priority Priority `json:"priority"`
	// Complexity is a 1-10 effort estimate, clamped on ingestion.
	Complexity int `json:"complexity"`
	// Dependencies lists subtask IDs that must complete before this one.
	// Only IDs present in the same graph survive normalization.
	Dependencies []string `json:"dependencies,omitempty"`
	// AcceptanceCriteria defines completion criteria, in declaration order.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	// RecordID is the tracker record registered for this subtask, if any.
	RecordID string `json:"record_id,omitempty"`
	// CreatedAt is when the subtask was normalized.
	CreatedAt time.Time `json:"created_at"`
}

// DependsOn reports whether the subtask declares a dependency on the given id.
func (s *Subtask) DependsOn(id string) bool {
	for _, dep := range s.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}
