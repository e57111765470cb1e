package models

import "time"

// SearchStatus is the outcome of one candidate search for a subtask.
type SearchStatus string

const (
	// SearchSuccess indicates a candidate passed structural validation.
	SearchSuccess SearchStatus = "success"
	// SearchExhausted indicates the attempt budget ran out; the best-scoring
	// candidate (if any attempt produced one) is carried as the result.
	SearchExhausted SearchStatus = "exhausted"
	// SearchSkipped indicates a collaborator failure prevented the search
	// from completing; the subtask stays in the run as a skip.
	SearchSkipped SearchStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s SearchStatus) Valid() bool {
	switch s {
	case SearchSuccess, SearchExhausted, SearchSkipped:
		return true
	default:
		return false
	}
}

// SubtaskResult records the outcome of one (subtask, artifact kind) search.
// Results are appended to workflow state as phases complete and are never
// mutated in place.
type SubtaskResult struct {
	// SubtaskID identifies the subtask this result belongs to.
	SubtaskID string `json:"subtask_id"`
	// Kind is the artifact kind that was searched for.
	Kind ArtifactKind `json:"kind"`
	// Status is the search outcome.
	Status SearchStatus `json:"status"`
	// Candidate is the chosen artifact, nil when every attempt errored
	// or the search was skipped.
	Candidate *Candidate `json:"candidate,omitempty"`
	// Attempts is how many generator attempts the search consumed.
	Attempts int `json:"attempts"`
	// FailureReason explains a skip or exhaustion, empty on success.
	FailureReason string `json:"failure_reason,omitempty"`
	// FinishedAt is when the search concluded.
	FinishedAt time.Time `json:"finished_at"`
}

// Usable reports whether the result carries an artifact the next phase can
// build on. Both clean successes and best-of-exhausted candidates count.
func (r *SubtaskResult) Usable() bool {
	return r != nil && r.Candidate != nil
}

// RunSummary holds the aggregate statistics frozen when a run completes.
type RunSummary struct {
	// TotalSubtasks is the size of the decomposition.
	TotalSubtasks int `json:"total_subtasks"`
	// Solved is the number of subtasks with a usable solution artifact.
	Solved int `json:"solved"`
	// Skipped is the number of subtasks abandoned after collaborator failures.
	Skipped int `json:"skipped"`
	// Unresolved is the number of subtasks whose searches produced nothing.
	Unresolved int `json:"unresolved"`
	// SuccessRate is Solved divided by TotalSubtasks, in [0,1].
	SuccessRate float64 `json:"success_rate"`
	// AvgComplexity is the mean complexity of the original decomposition.
	AvgComplexity float64 `json:"avg_complexity"`
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`
	// FinalPhase is the phase the run ended in.
	FinalPhase Phase `json:"final_phase"`
}
