package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konard/problem-solving/internal/state"
	"github.com/Konard/problem-solving/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest run",
	Long: `Display the state of the most recent run in this project.

Shows:
  - Run phase and progress
  - Per-subtask search outcomes
  - Recent run history`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No runs yet. Run 'psolve run <task>' to start.")
		return nil
	}

	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	// Ensure schema is up to date
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	run, err := store.LatestRun()
	if err != nil {
		return fmt.Errorf("get latest run: %w", err)
	}
	if run == nil {
		fmt.Println("No runs yet. Run 'psolve run <task>' to start.")
		return nil
	}

	displayRun(run)

	if err := displaySubtasks(store, run); err != nil {
		return err
	}

	fmt.Println()
	return displayRecentRuns(store, run.ID)
}

func displayRun(r *state.Run) {
	fmt.Printf("Latest Run: %s\n", r.ID)
	fmt.Printf("  Task: %s\n", r.Task)
	fmt.Printf("  Phase: %s\n", r.Phase)
	fmt.Printf("  Progress: %d%%\n", r.ProgressPct)
	if r.Total > 0 {
		fmt.Printf("  Solved: %d / %d (%.0f%%)\n", r.Solved, r.Total, r.SuccessRate*100)
	}
	if r.Finished() && !r.FinishedAt.IsZero() {
		fmt.Printf("  Duration: %s\n", formatDuration(r.FinishedAt.Sub(r.StartedAt)))
	} else {
		fmt.Printf("  Started: %s ago\n", formatDuration(time.Since(r.StartedAt)))
	}
}

func displaySubtasks(store *state.Store, r *state.Run) error {
	subtasks, err := store.SubtasksForRun(r.ID)
	if err != nil {
		return fmt.Errorf("list subtasks: %w", err)
	}
	if len(subtasks) == 0 {
		return nil
	}

	results, err := store.ResultsForRun(r.ID)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	// Index outcomes by subtask and artifact kind
	byKind := make(map[string]string, len(results))
	for _, res := range results {
		byKind[res.SubtaskID+"/"+res.Kind] = res.Status
	}

	fmt.Println()
	fmt.Println("Subtasks:")
	for _, st := range subtasks {
		tests := resultLabel(byKind[st.ID+"/"+string(models.ArtifactTest)])
		solution := resultLabel(byKind[st.ID+"/"+string(models.ArtifactSolution)])
		fmt.Printf("  %s: \"%s\" [%s, complexity %d] tests=%s solution=%s\n",
			st.ID, st.Title, st.Priority, st.Complexity, tests, solution)
	}
	return nil
}

func displayRecentRuns(store *state.Store, latestID string) error {
	runs, err := store.ListRuns(6)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	var recent []state.Run
	for _, r := range runs {
		if r.ID == latestID {
			continue
		}
		recent = append(recent, r)
		if len(recent) >= 5 {
			break
		}
	}

	if len(recent) == 0 {
		return nil
	}

	fmt.Println("Recent Runs:")
	for _, r := range recent {
		elapsed := formatDuration(time.Since(r.StartedAt))
		fmt.Printf("  %s: %s %d/%d (%s ago)\n", r.ID, r.Phase, r.Solved, r.Total, elapsed)
	}
	return nil
}

// resultLabel maps a stored result status to a display label.
func resultLabel(status string) string {
	if status == "" {
		return "pending"
	}
	return status
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
