package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestStore creates a new temporary database for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestProjectDBPath(t *testing.T) {
	got := ProjectDBPath("/work/repo")
	want := filepath.Join("/work/repo", ".psolve", "state.db")
	if got != want {
		t.Errorf("ProjectDBPath = %q, want %q", got, want)
	}
}

func TestMigrate(t *testing.T) {
	s, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	tables := []string{"schema_version", "runs", "subtasks", "results"}
	for _, table := range tables {
		var name string
		row := s.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&name); err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	// Migrations are idempotent.
	if err := s.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestSaveRun_InsertAndUpdate(t *testing.T) {
	s := setupTestStore(t)

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := &Run{
		ID:        "run-001",
		Task:      "build the widget",
		Phase:     "decomposition",
		StartedAt: started,
	}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.GetRun("run-001")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil")
	}
	if got.Task != "build the widget" || got.Phase != "decomposition" {
		t.Errorf("run mismatch: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if !got.FinishedAt.IsZero() {
		t.Errorf("FinishedAt = %v, want zero", got.FinishedAt)
	}

	// Saving again with the same id updates in place.
	run.Phase = "completed"
	run.ProgressPct = 100
	run.SuccessRate = 0.75
	run.Solved = 3
	run.Total = 4
	run.FinishedAt = started.Add(5 * time.Minute)
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	got, err = s.GetRun("run-001")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Phase != "completed" || got.ProgressPct != 100 || got.Solved != 3 || got.Total != 4 {
		t.Errorf("updated run mismatch: %+v", got)
	}
	if got.SuccessRate != 0.75 {
		t.Errorf("SuccessRate = %v, want 0.75", got.SuccessRate)
	}
	if !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, run.FinishedAt)
	}
	if !got.Finished() {
		t.Error("Finished() = false for completed run")
	}
}

func TestGetRun_Missing(t *testing.T) {
	s := setupTestStore(t)

	got, err := s.GetRun("nonexistent")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for nonexistent run, got %+v", got)
	}
}

func TestLatestRunAndListRuns(t *testing.T) {
	s := setupTestStore(t)

	latest, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun on empty store failed: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil latest run, got %+v", latest)
	}

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &Run{
			ID:        fmt.Sprintf("run-%03d", i),
			Task:      fmt.Sprintf("task %d", i),
			Phase:     "completed",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveRun(run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	latest, err = s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest == nil || latest.ID != "run-002" {
		t.Errorf("LatestRun = %+v, want run-002", latest)
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-002" || runs[1].ID != "run-001" {
		t.Errorf("ListRuns order = [%s, %s], want newest first", runs[0].ID, runs[1].ID)
	}

	all, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns(0) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func TestSaveSubtasks_Roundtrip(t *testing.T) {
	s := setupTestStore(t)

	run := &Run{ID: "run-sub", Task: "t", Phase: "decomposition", StartedAt: time.Now()}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	subtasks := []*Subtask{
		{RunID: "run-sub", ID: "subtask-1", Title: "parse input", Priority: "high", Complexity: 3},
		{RunID: "run-sub", ID: "subtask-2", Title: "write output", Priority: "medium", Complexity: 2, DependsOn: []string{"subtask-1"}},
	}
	if err := s.SaveSubtasks("run-sub", subtasks); err != nil {
		t.Fatalf("SaveSubtasks failed: %v", err)
	}

	got, err := s.SubtasksForRun("run-sub")
	if err != nil {
		t.Fatalf("SubtasksForRun failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d subtasks, want 2", len(got))
	}
	if got[0].ID != "subtask-1" || got[1].ID != "subtask-2" {
		t.Errorf("subtask order = [%s, %s]", got[0].ID, got[1].ID)
	}
	if got[0].Status != "pending" {
		t.Errorf("default status = %q, want pending", got[0].Status)
	}
	if len(got[1].DependsOn) != 1 || got[1].DependsOn[0] != "subtask-1" {
		t.Errorf("DependsOn = %v, want [subtask-1]", got[1].DependsOn)
	}

	// Saving again replaces the previous rows.
	if err := s.SaveSubtasks("run-sub", subtasks[:1]); err != nil {
		t.Fatalf("second SaveSubtasks failed: %v", err)
	}
	got, err = s.SubtasksForRun("run-sub")
	if err != nil {
		t.Fatalf("SubtasksForRun failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d subtasks after replace, want 1", len(got))
	}
}

func TestSaveResult_UpdatesSubtaskStatus(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveRun(&Run{ID: "run-res", Task: "t", Phase: "test_generation", StartedAt: time.Now()}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.SaveSubtasks("run-res", []*Subtask{
		{RunID: "run-res", ID: "subtask-1", Title: "parse input", Priority: "medium", Complexity: 1},
	}); err != nil {
		t.Fatalf("SaveSubtasks failed: %v", err)
	}

	result := &Result{
		RunID:      "run-res",
		SubtaskID:  "subtask-1",
		Kind:       "test",
		Status:     "success",
		Attempts:   1,
		FinishedAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	}
	if err := s.SaveResult(result, "in_progress"); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	results, err := s.ResultsForRun("run-res")
	if err != nil {
		t.Fatalf("ResultsForRun failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Kind != "test" || results[0].Status != "success" || results[0].Attempts != 1 {
		t.Errorf("result mismatch: %+v", results[0])
	}

	subtasks, err := s.SubtasksForRun("run-res")
	if err != nil {
		t.Fatalf("SubtasksForRun failed: %v", err)
	}
	if subtasks[0].Status != "in_progress" {
		t.Errorf("subtask status = %q, want in_progress", subtasks[0].Status)
	}

	// A second result for the same (subtask, kind) replaces the row.
	result.Status = "exhausted"
	result.Attempts = 3
	result.FailureReason = "no-placeholder: placeholder marker found"
	if err := s.SaveResult(result, "unresolved"); err != nil {
		t.Fatalf("second SaveResult failed: %v", err)
	}

	results, err = s.ResultsForRun("run-res")
	if err != nil {
		t.Fatalf("ResultsForRun failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results after upsert, want 1", len(results))
	}
	if results[0].Status != "exhausted" || results[0].Attempts != 3 {
		t.Errorf("upserted result mismatch: %+v", results[0])
	}
	if results[0].FailureReason == "" {
		t.Error("FailureReason lost on upsert")
	}

	subtasks, _ = s.SubtasksForRun("run-res")
	if subtasks[0].Status != "unresolved" {
		t.Errorf("subtask status = %q, want unresolved", subtasks[0].Status)
	}
}
