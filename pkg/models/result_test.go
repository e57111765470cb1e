package models

import (
	"testing"
	"time"
)

func TestArtifactKind_Valid(t *testing.T) {
	tests := []struct {
		name string
		kind ArtifactKind
		want bool
	}{
		{"test kind is valid", ArtifactTest, true},
		{"solution kind is valid", ArtifactSolution, true},
		{"empty is invalid", ArtifactKind(""), false},
		{"unknown is invalid", ArtifactKind("doc"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("ArtifactKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestSearchStatus_Valid(t *testing.T) {
	valid := []SearchStatus{SearchSuccess, SearchExhausted, SearchSkipped}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("SearchStatus(%q).Valid() = false, want true", s)
		}
	}
	if SearchStatus("partial").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestTokenUsage_Total(t *testing.T) {
	u := TokenUsage{Input: 120, Output: 380}
	if got := u.Total(); got != 500 {
		t.Errorf("Total() = %d, want 500", got)
	}

	var zero TokenUsage
	if got := zero.Total(); got != 0 {
		t.Errorf("zero usage Total() = %d, want 0", got)
	}
}

func TestSubtaskResult_Usable(t *testing.T) {
	cand := &Candidate{
		Content:   "package main\n\nfunc main() {}\n",
		Kind:      ArtifactSolution,
		CreatedAt: time.Now(),
	}

	tests := []struct {
		name   string
		result SubtaskResult
		want   bool
	}{
		{
			name:   "success with candidate",
			result: SubtaskResult{Status: SearchSuccess, Candidate: cand},
			want:   true,
		},
		{
			name:   "exhausted with best-effort candidate",
			result: SubtaskResult{Status: SearchExhausted, Candidate: cand},
			want:   true,
		},
		{
			name:   "exhausted with nothing kept",
			result: SubtaskResult{Status: SearchExhausted},
			want:   false,
		},
		{
			name:   "skipped has no candidate",
			result: SubtaskResult{Status: SearchSkipped},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Usable(); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}
