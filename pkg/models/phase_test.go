package models

import "testing"

func TestPhase_Valid(t *testing.T) {
	tests := []struct {
		name  string
		phase Phase
		want  bool
	}{
		{"idle is valid", PhaseIdle, true},
		{"decomposition is valid", PhaseDecomposition, true},
		{"issue creation is valid", PhaseIssueCreation, true},
		{"test generation is valid", PhaseTestGeneration, true},
		{"solution search is valid", PhaseSolutionSearch, true},
		{"solution composition is valid", PhaseSolutionComposition, true},
		{"completed is valid", PhaseCompleted, true},
		{"failed is valid", PhaseFailed, true},
		{"empty is invalid", Phase(""), false},
		{"unknown is invalid", Phase("review"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.phase.Valid(); got != tt.want {
				t.Errorf("Phase(%q).Valid() = %v, want %v", tt.phase, got, tt.want)
			}
		})
	}
}

func TestPhase_Index(t *testing.T) {
	// Indexes must follow the canonical pipeline order.
	order := []Phase{
		PhaseIdle,
		PhaseDecomposition,
		PhaseIssueCreation,
		PhaseTestGeneration,
		PhaseSolutionSearch,
		PhaseSolutionComposition,
		PhaseCompleted,
	}
	for i, p := range order {
		if got := p.Index(); got != i {
			t.Errorf("Phase(%q).Index() = %d, want %d", p, got, i)
		}
	}

	if got := PhaseFailed.Index(); got != -1 {
		t.Errorf("failed phase should sit outside the sequence, got index %d", got)
	}
	if got := Phase("bogus").Index(); got != -1 {
		t.Errorf("unknown phase should have index -1, got %d", got)
	}
}

func TestPhase_Terminal(t *testing.T) {
	if !PhaseCompleted.Terminal() {
		t.Error("completed should be terminal")
	}
	if !PhaseFailed.Terminal() {
		t.Error("failed should be terminal")
	}
	for _, p := range []Phase{PhaseIdle, PhaseDecomposition, PhaseSolutionSearch} {
		if p.Terminal() {
			t.Errorf("phase %q should not be terminal", p)
		}
	}
}

func TestPhase_ProgressPercent(t *testing.T) {
	if got := PhaseIdle.ProgressPercent(); got != 0 {
		t.Errorf("idle progress = %d, want 0", got)
	}
	if got := PhaseCompleted.ProgressPercent(); got != 100 {
		t.Errorf("completed progress = %d, want 100", got)
	}

	// Progress must be strictly monotonic across the working phases.
	seq := PhaseSequence()
	prev := -1
	for _, p := range seq {
		got := p.ProgressPercent()
		if got <= prev {
			t.Errorf("progress did not advance at %q: %d after %d", p, got, prev)
		}
		if got < 0 || got > 100 {
			t.Errorf("progress for %q out of range: %d", p, got)
		}
		prev = got
	}
}

func TestPhaseSequence_Copy(t *testing.T) {
	seq := PhaseSequence()
	if len(seq) == 0 {
		t.Fatal("expected non-empty phase sequence")
	}
	seq[0] = PhaseFailed

	if got := PhaseSequence()[0]; got != PhaseIdle {
		t.Errorf("mutating the returned slice leaked into the canonical order: got %q", got)
	}
}
