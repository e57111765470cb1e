package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Run is the persisted record of one workflow run.
type Run struct {
	ID          string    `json:"id"`
	Task        string    `json:"task"`
	Phase       string    `json:"phase"`
	ProgressPct int       `json:"progress_pct"`
	SuccessRate float64   `json:"success_rate"`
	Solved      int       `json:"solved"`
	Total       int       `json:"total"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Finished reports whether the run reached a terminal phase.
func (r *Run) Finished() bool {
	return r.Phase == "completed" || r.Phase == "failed"
}

// Subtask is one decomposed unit of work within a run.
type Subtask struct {
	RunID      string   `json:"run_id"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Priority   string   `json:"priority"`
	Complexity int      `json:"complexity"`
	DependsOn  []string `json:"depends_on"`
	Status     string   `json:"status"`
}

// Result is one finished search outcome within a run.
type Result struct {
	RunID         string    `json:"run_id"`
	SubtaskID     string    `json:"subtask_id"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	FailureReason string    `json:"failure_reason"`
	FinishedAt    time.Time `json:"finished_at"`
}

// SaveRun inserts or updates a run record.
func (s *Store) SaveRun(r *Run) error {
	_, err := s.Exec(`
		INSERT INTO runs (id, task, phase, progress_pct, success_rate, solved, total, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task = excluded.task,
			phase = excluded.phase,
			progress_pct = excluded.progress_pct,
			success_rate = excluded.success_rate,
			solved = excluded.solved,
			total = excluded.total,
			finished_at = excluded.finished_at
	`, r.ID, r.Task, r.Phase, r.ProgressPct, r.SuccessRate, r.Solved, r.Total,
		formatTime(r.StartedAt), formatNullableTime(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when the run does not exist.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.QueryRow(`
		SELECT id, task, phase, progress_pct, success_rate, solved, total, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// LatestRun retrieves the most recently started run. Returns nil when no run
// has been recorded.
func (s *Store) LatestRun() (*Run, error) {
	row := s.QueryRow(`
		SELECT id, task, phase, progress_pct, success_rate, solved, total, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT 1
	`)
	return scanRun(row)
}

// ListRuns retrieves runs newest first. A non-positive limit means all runs.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, task, phase, progress_pct, success_rate, solved, total, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Task, &r.Phase, &r.ProgressPct, &r.SuccessRate,
			&r.Solved, &r.Total, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = parseTime(startedAt)
		r.FinishedAt = parseNullableTime(finishedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row *sql.Row) (*Run, error) {
	var r Run
	var startedAt string
	var finishedAt sql.NullString
	err := row.Scan(&r.ID, &r.Task, &r.Phase, &r.ProgressPct, &r.SuccessRate,
		&r.Solved, &r.Total, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

// SaveSubtasks replaces the stored decomposition for a run.
func (s *Store) SaveSubtasks(runID string, subtasks []*Subtask) error {
	return s.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM subtasks WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear subtasks: %w", err)
		}
		for _, st := range subtasks {
			dependsOn, _ := json.Marshal(st.DependsOn)
			status := st.Status
			if status == "" {
				status = "pending"
			}
			_, err := tx.Exec(`
				INSERT INTO subtasks (run_id, id, title, priority, complexity, depends_on, status)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, runID, st.ID, st.Title, st.Priority, st.Complexity, string(dependsOn), status)
			if err != nil {
				return fmt.Errorf("save subtask %s: %w", st.ID, err)
			}
		}
		return nil
	})
}

// SubtasksForRun retrieves a run's subtasks in insertion order.
func (s *Store) SubtasksForRun(runID string) ([]Subtask, error) {
	rows, err := s.Query(`
		SELECT run_id, id, title, priority, complexity, depends_on, status
		FROM subtasks WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []Subtask
	for rows.Next() {
		var st Subtask
		var dependsOn sql.NullString
		if err := rows.Scan(&st.RunID, &st.ID, &st.Title, &st.Priority,
			&st.Complexity, &dependsOn, &st.Status); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		if dependsOn.Valid && dependsOn.String != "" {
			json.Unmarshal([]byte(dependsOn.String), &st.DependsOn)
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, rows.Err()
}

// SaveResult inserts or updates one search result. A non-empty
// subtaskStatus also updates the subtask's status column.
func (s *Store) SaveResult(r *Result, subtaskStatus string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO results (run_id, subtask_id, kind, status, attempts, failure_reason, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, subtask_id, kind) DO UPDATE SET
				status = excluded.status,
				attempts = excluded.attempts,
				failure_reason = excluded.failure_reason,
				finished_at = excluded.finished_at
		`, r.RunID, r.SubtaskID, r.Kind, r.Status, r.Attempts, r.FailureReason,
			formatNullableTime(r.FinishedAt))
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}

		if subtaskStatus != "" {
			_, err := tx.Exec(`
				UPDATE subtasks SET status = ? WHERE run_id = ? AND id = ?
			`, subtaskStatus, r.RunID, r.SubtaskID)
			if err != nil {
				return fmt.Errorf("update subtask status: %w", err)
			}
		}
		return nil
	})
}

// ResultsForRun retrieves a run's results in insertion order.
func (s *Store) ResultsForRun(runID string) ([]Result, error) {
	rows, err := s.Query(`
		SELECT run_id, subtask_id, kind, status, attempts, failure_reason, finished_at
		FROM results WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var failureReason sql.NullString
		var finishedAt sql.NullString
		if err := rows.Scan(&r.RunID, &r.SubtaskID, &r.Kind, &r.Status,
			&r.Attempts, &failureReason, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.FailureReason = failureReason.String
		r.FinishedAt = parseNullableTime(finishedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}
