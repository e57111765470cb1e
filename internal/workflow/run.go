package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Konard/problem-solving/internal/compose"
	"github.com/Konard/problem-solving/internal/generate"
	"github.com/Konard/problem-solving/internal/search"
	"github.com/Konard/problem-solving/pkg/models"
)

// Run executes the full pipeline for one task: decomposition, record
// fan-out, test search, solution search, composition. Any phase error moves
// the run to the failed phase and comes back to the caller; per-subtask
// collaborator failures degrade that subtask to skipped instead.
//
// Cancellation is honored at phase boundaries and between per-subtask units;
// an in-flight generation attempt is never interrupted.
func (c *Coordinator) Run(ctx context.Context, taskText string) (*models.RunSummary, error) {
	trimmed := strings.TrimSpace(taskText)
	if trimmed == "" {
		return nil, errors.New("workflow: task text is empty")
	}

	runID, err := c.begin(trimmed)
	if err != nil {
		return nil, err
	}
	c.logger.Log("[workflow] run %s started: %s", runID, taskTitle(trimmed))

	runErr := c.runPhases(ctx, trimmed)
	summary := c.finish(runErr)
	if runErr != nil {
		return nil, runErr
	}
	return summary, nil
}

// begin claims the coordinator for a new run and installs fresh state. A
// pause requested before the run carries over and gates the first phase; a
// stale stop does not.
func (c *Coordinator) begin(taskText string) (string, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return "", errors.New("workflow: a run is already active")
	}
	wasPaused := c.pause.IsPaused()
	c.running = true
	c.state = newState()
	c.state.TaskText = taskText
	c.state.StartedAt = c.clock.Now()
	c.pause = NewPauseController()
	if wasPaused {
		c.pause.Pause()
		c.state.Paused = true
		c.state.PausedAt = c.clock.Now()
	}
	runID := c.state.RunID
	c.mu.Unlock()

	c.persistRun()
	return runID, nil
}

// runPhases walks the phase ladder in order.
func (c *Coordinator) runPhases(ctx context.Context, taskText string) error {
	if err := c.transition(ctx, models.PhaseDecomposition); err != nil {
		return err
	}
	if err := c.decompositionPhase(ctx, taskText); err != nil {
		return err
	}

	if err := c.transition(ctx, models.PhaseIssueCreation); err != nil {
		return err
	}
	if err := c.issueCreationPhase(ctx); err != nil {
		return err
	}

	if err := c.transition(ctx, models.PhaseTestGeneration); err != nil {
		return err
	}
	if err := c.searchPhase(ctx, models.ArtifactTest); err != nil {
		return err
	}

	if err := c.transition(ctx, models.PhaseSolutionSearch); err != nil {
		return err
	}
	if err := c.searchPhase(ctx, models.ArtifactSolution); err != nil {
		return err
	}

	if err := c.transition(ctx, models.PhaseSolutionComposition); err != nil {
		return err
	}
	if err := c.compositionPhase(ctx); err != nil {
		return err
	}

	return c.transition(ctx, models.PhaseCompleted)
}

// transition gates on pause/stop, then moves the run to the next phase and
// stores the new progress value.
func (c *Coordinator) transition(ctx context.Context, next models.Phase) error {
	if err := c.pauseController().WaitIfPaused(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.state.Phase
	c.state.Phase = next
	c.state.ProgressPct = next.ProgressPercent()
	c.mu.Unlock()

	c.persistRun()
	if prev != models.PhaseIdle {
		c.emit(Event{Type: EventPhaseFinished, Phase: prev})
	}
	c.emit(Event{Type: EventPhaseStarted, Phase: next})
	c.logger.Log("[workflow] phase %s -> %s", prev, next)
	return nil
}

// finish moves the run to its terminal phase and freezes the summary.
func (c *Coordinator) finish(runErr error) *models.RunSummary {
	c.mu.Lock()
	now := c.clock.Now()
	c.state.FinishedAt = now
	if runErr != nil {
		// Progress stays frozen at its last value.
		c.state.Phase = models.PhaseFailed
		c.state.FailureReason = runErr.Error()
	}
	summary := c.summaryLocked(now)
	c.state.Summary = summary
	c.running = false
	c.mu.Unlock()

	c.persistRun()
	if runErr != nil {
		c.emit(Event{Type: EventRunFailed, Phase: models.PhaseFailed, Err: runErr, Message: runErr.Error()})
		c.logger.Log("[workflow] run failed: %v", runErr)
	} else {
		c.emit(Event{
			Type:    EventRunCompleted,
			Phase:   models.PhaseCompleted,
			Message: fmt.Sprintf("%d/%d subtasks solved", summary.Solved, summary.TotalSubtasks),
		})
		c.logger.Log("[workflow] run completed: %d/%d solved, %d skipped, %d unresolved",
			summary.Solved, summary.TotalSubtasks, summary.Skipped, summary.Unresolved)
	}
	return summary
}

// summaryLocked computes the aggregate statistics. Caller holds mu.
func (c *Coordinator) summaryLocked(now time.Time) *models.RunSummary {
	total := len(c.state.Subtasks)
	var solved, skipped, complexity int
	for _, st := range c.state.Subtasks {
		complexity += st.Complexity
		switch c.state.StatusOf(st.ID) {
		case models.SubtaskStatusSolved:
			solved++
		case models.SubtaskStatusSkipped:
			skipped++
		}
	}

	summary := &models.RunSummary{
		TotalSubtasks: total,
		Solved:        solved,
		Skipped:       skipped,
		Unresolved:    total - solved - skipped,
		Elapsed:       now.Sub(c.state.StartedAt),
		FinalPhase:    c.state.Phase,
	}
	if total > 0 {
		summary.SuccessRate = float64(solved) / float64(total)
		summary.AvgComplexity = float64(complexity) / float64(total)
	}
	return summary
}

// decompositionPhase builds and validates the subtask graph, then stores the
// subtasks in topological order together with their parallel batches.
func (c *Coordinator) decompositionPhase(ctx context.Context, taskText string) error {
	res, err := c.decomposer.Decompose(ctx, taskText)
	if err != nil {
		return fmt.Errorf("decomposition: %w", err)
	}

	order, err := res.Graph.TopologicalSort()
	if err != nil {
		return fmt.Errorf("decomposition: %w", err)
	}
	batches, err := res.Graph.ParallelBatches()
	if err != nil {
		return fmt.Errorf("decomposition: %w", err)
	}

	byID := make(map[string]*models.Subtask, len(res.Subtasks))
	for _, st := range res.Subtasks {
		byID[st.ID] = st
	}
	ordered := make([]*models.Subtask, 0, len(order))
	for _, id := range order {
		if st := byID[id]; st != nil {
			ordered = append(ordered, st)
		}
	}

	c.mu.Lock()
	c.state.Subtasks = ordered
	c.state.Batches = batches
	c.state.Dropped = res.Dropped
	c.mu.Unlock()

	c.persistSubtasks()
	c.logger.Log("[workflow] decomposed into %d subtasks across %d batches", len(ordered), len(batches))
	return nil
}

// issueCreationPhase registers a root record for the task and one record per
// subtask under it. Tracker failures are logged and leave the record id
// empty; the fan-out never aborts the run.
func (c *Coordinator) issueCreationPhase(ctx context.Context) error {
	c.mu.RLock()
	taskText := c.state.TaskText
	subtasks := c.state.Subtasks
	c.mu.RUnlock()

	rootID, err := c.tracker.CreateRecord(ctx, taskTitle(taskText), rootRecordBody(taskText, len(subtasks)), "")
	if err != nil {
		c.logger.Log("[workflow] root record failed: %v", err)
		rootID = ""
	} else {
		c.mu.Lock()
		c.state.RootRecordID = rootID
		c.mu.Unlock()
		c.logger.Log("[workflow] root record %s created", rootID)
	}

	for _, st := range subtasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := c.tracker.CreateRecord(ctx, st.Title, recordBody(st), rootID)
		if err != nil {
			c.logger.Log("[workflow] record for subtask %s failed: %v", st.ID, err)
			continue
		}
		c.mu.Lock()
		c.state.RecordIDs[st.ID] = id
		c.mu.Unlock()
	}
	return nil
}

// searchJob carries everything one subtask search needs.
type searchJob struct {
	subtask      *models.Subtask
	recordID     string
	testArtifact string
}

// searchPhase runs the candidate search for every eligible subtask, batch by
// batch. For solution searches, only subtasks with a usable test artifact
// are eligible and the test content rides along in the request.
func (c *Coordinator) searchPhase(ctx context.Context, kind models.ArtifactKind) error {
	c.mu.RLock()
	taskText := c.state.TaskText
	runID := c.state.RunID
	batches := c.state.Batches
	subtasks := make(map[string]*models.Subtask, len(c.state.Subtasks))
	for _, st := range c.state.Subtasks {
		subtasks[st.ID] = st
	}
	records := make(map[string]string, len(c.state.RecordIDs))
	for id, rec := range c.state.RecordIDs {
		records[id] = rec
	}
	tests := make(map[string]*models.SubtaskResult, len(c.state.TestResults))
	for id, r := range c.state.TestResults {
		tests[id] = r
	}
	c.mu.RUnlock()

	for _, batch := range batches {
		var jobs []searchJob
		for _, id := range batch {
			st := subtasks[id]
			if st == nil {
				continue
			}
			job := searchJob{subtask: st, recordID: records[id]}
			if kind == models.ArtifactSolution {
				test := tests[id]
				if !test.Usable() {
					continue
				}
				job.testArtifact = test.Candidate.Content
			}
			jobs = append(jobs, job)
		}
		if len(jobs) == 0 {
			continue
		}
		if err := c.runBatch(ctx, kind, taskText, runID, jobs); err != nil {
			return err
		}
	}
	return nil
}

// runBatch finishes every job in the batch before returning; the next batch
// may not start until this one has fully drained, even on cancellation.
func (c *Coordinator) runBatch(ctx context.Context, kind models.ArtifactKind, taskText, runID string, jobs []searchJob) error {
	phase := phaseForKind(kind)
	for _, job := range jobs {
		c.emit(Event{Type: EventSubtaskQueued, Phase: phase, SubtaskID: job.subtask.ID, Title: job.subtask.Title})
	}

	if c.concurrency <= 1 || len(jobs) == 1 {
		for _, job := range jobs {
			result, err := c.searchOne(ctx, kind, taskText, runID, job)
			if err != nil {
				return err
			}
			c.storeResult(kind, job.subtask, result)
		}
		return nil
	}

	type outcome struct {
		idx    int
		result *models.SubtaskResult
		err    error
	}

	sem := make(chan struct{}, c.concurrency)
	outcomes := make(chan outcome, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job searchJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			result, err := c.searchOne(ctx, kind, taskText, runID, job)
			outcomes <- outcome{idx: i, result: result, err: err}
		}(i, job)
	}
	wg.Wait()
	close(outcomes)

	results := make([]*models.SubtaskResult, len(jobs))
	var firstErr error
	for out := range outcomes {
		if out.err != nil {
			if firstErr == nil {
				firstErr = out.err
			}
			continue
		}
		results[out.idx] = out.result
	}

	// Store in job order so events and persistence stay deterministic no
	// matter how the workers interleaved.
	for i, job := range jobs {
		if results[i] != nil {
			c.storeResult(kind, job.subtask, results[i])
		}
	}
	return firstErr
}

// searchOne runs the bounded search for one subtask and registers the
// accepted artifact with the tracker. Only context cancellation comes back
// as an error; collaborator failures degrade the subtask to skipped.
func (c *Coordinator) searchOne(ctx context.Context, kind models.ArtifactKind, taskText, runID string, job searchJob) (*models.SubtaskResult, error) {
	st := job.subtask
	res, err := c.engine.Search(ctx, st, search.Request{
		Kind:         kind,
		TaskText:     taskText,
		TestArtifact: job.testArtifact,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Log("[workflow] %s search for %s failed: %v", kind, st.ID, err)
		return &models.SubtaskResult{
			SubtaskID:     st.ID,
			Kind:          kind,
			Status:        models.SearchSkipped,
			FailureReason: err.Error(),
			FinishedAt:    c.clock.Now(),
		}, nil
	}

	result := &models.SubtaskResult{
		SubtaskID:  st.ID,
		Kind:       kind,
		Status:     res.Status,
		Candidate:  res.Chosen,
		Attempts:   len(res.Attempts),
		FinishedAt: c.clock.Now(),
	}
	if res.Status != models.SearchSuccess && len(res.Attempts) > 0 {
		result.FailureReason = res.Attempts[len(res.Attempts)-1].FailureReason
	}

	if result.Candidate == nil {
		return result, nil
	}

	// Register the accepted artifact against the subtask's record. A tracker
	// failure skips the subtask; the run carries on without it.
	_, err = c.tracker.CreateArtifactSubmission(ctx,
		submissionTitle(kind, st), branchHint(runID, st.ID),
		result.Candidate.Content, job.recordID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Log("[workflow] submit %s artifact for %s failed: %v", kind, st.ID, err)
		result.Status = models.SearchSkipped
		result.Candidate = nil
		result.FailureReason = fmt.Sprintf("submit %s artifact: %v", kind, err)
	}
	return result, nil
}

// storeResult records a finished search and narrates it.
func (c *Coordinator) storeResult(kind models.ArtifactKind, st *models.Subtask, r *models.SubtaskResult) {
	c.mu.Lock()
	if kind == models.ArtifactTest {
		c.state.TestResults[r.SubtaskID] = r
	} else {
		c.state.SolutionResults[r.SubtaskID] = r
	}
	c.mu.Unlock()

	c.persistResult(r)
	c.emit(Event{
		Type:      EventSubtaskFinished,
		Phase:     phaseForKind(kind),
		SubtaskID: st.ID,
		Title:     st.Title,
		Status:    r.Status,
		Message:   r.FailureReason,
	})
}

// compositionPhase assembles the solved artifacts in topological order,
// optionally asks the generator for a freeform merge narrative, and submits
// the composed result against the root record.
func (c *Coordinator) compositionPhase(ctx context.Context) error {
	c.mu.RLock()
	taskText := c.state.TaskText
	runID := c.state.RunID
	rootRecordID := c.state.RootRecordID
	subtasks := append([]*models.Subtask(nil), c.state.Subtasks...)
	solutions := make(map[string]*models.SubtaskResult, len(c.state.SolutionResults))
	for id, r := range c.state.SolutionResults {
		solutions[id] = r
	}
	c.mu.RUnlock()

	var solved []compose.Solved
	for _, st := range subtasks {
		r := solutions[st.ID]
		if !r.Usable() {
			continue
		}
		solved = append(solved, compose.Solved{Subtask: st, Candidate: r.Candidate})
	}
	if len(solved) == 0 {
		return fmt.Errorf("%w: every subtask ended skipped or unresolved", ErrNoViableSolutions)
	}

	result, err := c.composer.Compose(taskText, solved)
	if err != nil {
		if errors.Is(err, compose.ErrNoSolvedArtifacts) {
			return fmt.Errorf("%w: %v", ErrNoViableSolutions, err)
		}
		return fmt.Errorf("compose: %w", err)
	}

	c.mu.Lock()
	c.state.Composition = result
	c.mu.Unlock()
	c.logger.Log("[workflow] composed %d artifacts (%d bytes)", result.Stats.ArtifactCount, result.Stats.TotalBytes)

	if c.freeform {
		req := generate.ComposeRequest{TaskText: taskText}
		for _, s := range solved {
			req.Sections = append(req.Sections, generate.ComposeSection{
				Title:   s.Subtask.Title,
				Content: s.Candidate.Content,
			})
		}
		text, err := c.gen.ComposeFreeform(ctx, req)
		if err != nil {
			c.logger.Log("[workflow] freeform merge failed, keeping deterministic result: %v", err)
		} else {
			c.mu.Lock()
			c.state.FreeformMerge = text
			c.mu.Unlock()
		}
	}

	// Submit the composed result against the root record. The composition
	// itself already succeeded; a submission failure is only logged.
	content := result.Content + "\n=== manifest ===\n\n" + result.Manifest
	subID, err := c.tracker.CreateArtifactSubmission(ctx,
		"Composed solution: "+taskTitle(taskText), branchHint(runID, "composed"),
		content, rootRecordID)
	if err != nil {
		c.logger.Log("[workflow] composed submission failed: %v", err)
	} else {
		c.mu.Lock()
		c.state.SubmissionID = subID
		c.mu.Unlock()
	}
	return nil
}

// phaseForKind maps an artifact kind to its search phase.
func phaseForKind(kind models.ArtifactKind) models.Phase {
	if kind == models.ArtifactTest {
		return models.PhaseTestGeneration
	}
	return models.PhaseSolutionSearch
}

// taskTitle derives a record title from the first line of the task text.
func taskTitle(taskText string) string {
	line := taskText
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	const max = 72
	if len(line) > max {
		line = strings.TrimSpace(line[:max]) + "..."
	}
	return line
}

// rootRecordBody renders the body of the task's root record.
func rootRecordBody(taskText string, subtasks int) string {
	return fmt.Sprintf("%s\n\nDecomposed into %d subtasks.\n", strings.TrimSpace(taskText), subtasks)
}

// recordBody renders the tracker record body for one subtask.
func recordBody(st *models.Subtask) string {
	var b strings.Builder
	if st.Description != "" {
		b.WriteString(st.Description)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nPriority: %s\nComplexity: %d\n", st.Priority, st.Complexity)
	if len(st.Dependencies) > 0 {
		fmt.Fprintf(&b, "Depends on: %s\n", strings.Join(st.Dependencies, ", "))
	}
	if len(st.AcceptanceCriteria) > 0 {
		b.WriteString("\nAcceptance criteria:\n")
		for _, criterion := range st.AcceptanceCriteria {
			fmt.Fprintf(&b, "- %s\n", criterion)
		}
	}
	return b.String()
}

// submissionTitle names a per-subtask artifact submission.
func submissionTitle(kind models.ArtifactKind, st *models.Subtask) string {
	if kind == models.ArtifactTest {
		return "Tests: " + st.Title
	}
	return "Solution: " + st.Title
}

// branchHint proposes a branch name for a submission.
func branchHint(runID, suffix string) string {
	return fmt.Sprintf("psolve/%s/%s", runID, suffix)
}
