package workflow

import (
	"github.com/Konard/problem-solving/internal/state"
	"github.com/Konard/problem-solving/pkg/models"
)

// Persistence is best-effort: every helper is a no-op without a store, and
// store errors are logged without ever failing the run.

// persistRun upserts the run row with the current phase and counters.
func (c *Coordinator) persistRun() {
	if c.store == nil {
		return
	}

	c.mu.RLock()
	s := c.state
	run := &state.Run{
		ID:          s.RunID,
		Task:        s.TaskText,
		Phase:       string(s.Phase),
		ProgressPct: s.ProgressPct,
		Total:       len(s.Subtasks),
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	}
	for _, st := range s.Subtasks {
		if s.StatusOf(st.ID) == models.SubtaskStatusSolved {
			run.Solved++
		}
	}
	if run.Total > 0 {
		run.SuccessRate = float64(run.Solved) / float64(run.Total)
	}
	c.mu.RUnlock()

	if err := c.store.SaveRun(run); err != nil {
		c.logger.Log("[workflow] persist run: %v", err)
	}
}

// persistSubtasks writes the decomposition rows for the run.
func (c *Coordinator) persistSubtasks() {
	if c.store == nil {
		return
	}

	c.mu.RLock()
	runID := c.state.RunID
	rows := make([]*state.Subtask, 0, len(c.state.Subtasks))
	for _, st := range c.state.Subtasks {
		rows = append(rows, &state.Subtask{
			RunID:      runID,
			ID:         st.ID,
			Title:      st.Title,
			Priority:   string(st.Priority),
			Complexity: st.Complexity,
			DependsOn:  st.Dependencies,
			Status:     string(models.SubtaskStatusPending),
		})
	}
	c.mu.RUnlock()

	if err := c.store.SaveSubtasks(runID, rows); err != nil {
		c.logger.Log("[workflow] persist subtasks: %v", err)
	}
}

// persistResult writes one finished search result together with the
// subtask's derived status.
func (c *Coordinator) persistResult(r *models.SubtaskResult) {
	if c.store == nil {
		return
	}

	c.mu.RLock()
	runID := c.state.RunID
	status := c.state.StatusOf(r.SubtaskID)
	c.mu.RUnlock()

	row := &state.Result{
		RunID:         runID,
		SubtaskID:     r.SubtaskID,
		Kind:          string(r.Kind),
		Status:        string(r.Status),
		Attempts:      r.Attempts,
		FailureReason: r.FailureReason,
		FinishedAt:    r.FinishedAt,
	}
	if err := c.store.SaveResult(row, string(status)); err != nil {
		c.logger.Log("[workflow] persist result: %v", err)
	}
}
