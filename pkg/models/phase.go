package models

// Phase represents the workflow coordinator's position in a run.
type Phase string

const (
	// PhaseIdle indicates no run has started.
	PhaseIdle Phase = "idle"
	// PhaseDecomposition covers graph construction and validation.
	PhaseDecomposition Phase = "decomposition"
	// PhaseIssueCreation covers the tracker record fan-out.
	PhaseIssueCreation Phase = "issue_creation"
	// PhaseTestGeneration covers the per-subtask test artifact search.
	PhaseTestGeneration Phase = "test_generation"
	// PhaseSolutionSearch covers the per-subtask solution artifact search.
	PhaseSolutionSearch Phase = "solution_search"
	// PhaseSolutionComposition covers assembly of solved artifacts.
	PhaseSolutionComposition Phase = "solution_composition"
	// PhaseCompleted is the terminal success phase.
	PhaseCompleted Phase = "completed"
	// PhaseFailed is the terminal failure phase.
	PhaseFailed Phase = "failed"
)

// phaseOrder is the canonical forward sequence of a run.
// PhaseFailed sits outside the sequence; it can be entered from any phase.
var phaseOrder = []Phase{
	PhaseIdle,
	PhaseDecomposition,
	PhaseIssueCreation,
	PhaseTestGeneration,
	PhaseSolutionSearch,
	PhaseSolutionComposition,
	PhaseCompleted,
}

// PhaseSequence returns the canonical forward phase sequence.
// The returned slice is a copy; callers may not mutate coordinator state through it.
func PhaseSequence() []Phase {
	seq := make([]Phase, len(phaseOrder))
	copy(seq, phaseOrder)
	return seq
}

// Valid returns true if the phase is a known value.
func (p Phase) Valid() bool {
	if p == PhaseFailed {
		return true
	}
	return p.Index() >= 0
}

// Index returns the phase's 0-based position in the canonical sequence,
// or -1 for PhaseFailed and unknown phases.
func (p Phase) Index() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// Terminal returns true for phases that end a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// ProgressPercent maps the phase to a completion percentage.
// PhaseCompleted always reports 100 regardless of index arithmetic;
// the result for other phases is index/len(sequence) as a percentage.
func (p Phase) ProgressPercent() int {
	if p == PhaseCompleted {
		return 100
	}
	idx := p.Index()
	if idx < 0 {
		return 0
	}
	return idx * 100 / len(phaseOrder)
}
