package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/Konard/problem-solving/internal/compose"
	"github.com/Konard/problem-solving/internal/decompose"
	"github.com/Konard/problem-solving/pkg/models"
)

// State is the mutable record of one workflow run. It is owned exclusively
// by the coordinator goroutine; everyone else reads it through Snapshot.
type State struct {
	// RunID identifies the run.
	RunID string
	// TaskText is the problem statement the run is working on.
	TaskText string
	// Phase is the coordinator's current position.
	Phase models.Phase
	// ProgressPct is the completion percentage, updated on phase
	// transitions and frozen at its last value when a run fails.
	ProgressPct int

	// Subtasks holds the decomposition in topological order.
	Subtasks []*models.Subtask
	// Batches groups subtask ids into dependency levels; every member of a
	// batch has all dependencies satisfied by earlier batches.
	Batches [][]string
	// Dropped lists dependency edges discarded during normalization.
	Dropped []decompose.DroppedDependency

	// RootRecordID is the tracker record registered for the task itself.
	// Empty when registration failed; the run carries on without it.
	RootRecordID string
	// RecordIDs maps subtask id to its tracker record id. Subtasks whose
	// registration failed are absent.
	RecordIDs map[string]string

	// TestResults and SolutionResults hold per-subtask search outcomes,
	// keyed by subtask id. Entries are immutable once stored.
	TestResults     map[string]*models.SubtaskResult
	SolutionResults map[string]*models.SubtaskResult

	// Composition is the assembled result, set during solution_composition.
	Composition *compose.Result
	// FreeformMerge is the generator's narrative of how the solved pieces
	// fit together. Empty when freeform merging is disabled or failed.
	FreeformMerge string
	// SubmissionID is the tracker submission carrying the composed result.
	SubmissionID string

	// Summary holds the aggregate statistics frozen when the run ended.
	Summary *models.RunSummary

	// StartedAt and FinishedAt bracket the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Paused is the advisory pause flag with its bookkeeping timestamps.
	Paused    bool
	PausedAt  time.Time
	ResumedAt time.Time

	// FailureReason explains a failed run. Empty otherwise.
	FailureReason string
}

// newState returns a fresh idle state with a newly minted run id.
func newState() *State {
	return &State{
		RunID:           uuid.New().String()[:8],
		Phase:           models.PhaseIdle,
		RecordIDs:       make(map[string]string),
		TestResults:     make(map[string]*models.SubtaskResult),
		SolutionResults: make(map[string]*models.SubtaskResult),
	}
}

// snapshot returns a copy safe to hand outside the coordinator. Containers
// are copied; subtasks are copied by value with the tracker record id
// materialized from RecordIDs. Results, composition, and summary are shared
// pointers: they are never mutated after publication.
func (s *State) snapshot() State {
	out := *s

	out.Subtasks = make([]*models.Subtask, len(s.Subtasks))
	for i, st := range s.Subtasks {
		dup := *st
		if id, ok := s.RecordIDs[st.ID]; ok {
			dup.RecordID = id
		}
		out.Subtasks[i] = &dup
	}

	out.Batches = make([][]string, len(s.Batches))
	for i, batch := range s.Batches {
		out.Batches[i] = append([]string(nil), batch...)
	}
	out.Dropped = append([]decompose.DroppedDependency(nil), s.Dropped...)

	out.RecordIDs = make(map[string]string, len(s.RecordIDs))
	for k, v := range s.RecordIDs {
		out.RecordIDs[k] = v
	}
	out.TestResults = make(map[string]*models.SubtaskResult, len(s.TestResults))
	for k, v := range s.TestResults {
		out.TestResults[k] = v
	}
	out.SolutionResults = make(map[string]*models.SubtaskResult, len(s.SolutionResults))
	for k, v := range s.SolutionResults {
		out.SolutionResults[k] = v
	}

	return out
}

// StatusOf derives the display status of a subtask from the recorded
// search results.
func (s *State) StatusOf(subtaskID string) models.SubtaskStatus {
	test := s.TestResults[subtaskID]
	solution := s.SolutionResults[subtaskID]

	switch {
	case solution.Usable():
		return models.SubtaskStatusSolved
	case test != nil && test.Status == models.SearchSkipped,
		solution != nil && solution.Status == models.SearchSkipped:
		return models.SubtaskStatusSkipped
	case solution != nil:
		return models.SubtaskStatusUnresolved
	case test != nil && !test.Usable():
		return models.SubtaskStatusUnresolved
	case test != nil:
		return models.SubtaskStatusInProgress
	default:
		return models.SubtaskStatusPending
	}
}
