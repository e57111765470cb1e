package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Konard/problem-solving/internal/config"
	"github.com/Konard/problem-solving/internal/track"
)

var checkTrackerMode string

var checkCmd = &cobra.Command{
	Use:   "check <submission-id>",
	Short: "Check the approval status of a submission",
	Long: `Query the tracker for a submission's approval status.

Submissions are created during a run, one per usable artifact plus
one for the composed deliverable. The local tracker approves via
'psolve approve'; the GitHub tracker approves when the pull request
is merged or the issue closed.

The dryrun tracker is in-memory and has nothing to check between
processes.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkTrackerMode, "tracker", "", "tracker backend: local or github (default: from config)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	submissionID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mode, err := resolveTrackerMode(false, checkTrackerMode, cfg.Defaults.Tracker)
	if err != nil {
		return err
	}
	if mode == config.TrackerDryRun {
		return fmt.Errorf("the dryrun tracker is in-memory; use --tracker local or --tracker github")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	tracker, closeTracker, err := buildTracker(cfg, mode, cwd)
	if err != nil {
		return err
	}
	if closeTracker != nil {
		defer closeTracker()
	}

	approved, err := tracker.GetApprovalStatus(context.Background(), submissionID)
	if err != nil {
		return fmt.Errorf("check approval: %w", err)
	}

	if approved {
		fmt.Printf("%s Submission %s is approved\n", color.GreenString("✓"), submissionID)
	} else {
		fmt.Printf("%s Submission %s is not yet approved\n", color.YellowString("⚠"), submissionID)
	}
	return nil
}

var approveCmd = &cobra.Command{
	Use:   "approve <submission-id>",
	Short: "Approve a submission in the local tracker",
	Long: `Mark a submission approved in the local tracker registry.

Only the local tracker takes approvals from this command; the GitHub
tracker is approved by merging the pull request or closing the issue
on GitHub.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func runApprove(cmd *cobra.Command, args []string) error {
	submissionID := args[0]

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := filepath.Join(cwd, ".psolve", "track.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no local tracker registry at %s; run with --tracker local first", dbPath)
	}

	local, err := track.NewLocal(dbPath)
	if err != nil {
		return fmt.Errorf("open local tracker: %w", err)
	}
	defer local.Close()

	if err := local.Approve(context.Background(), submissionID); err != nil {
		return fmt.Errorf("approve submission: %w", err)
	}

	fmt.Printf("%s Submission %s approved\n", color.GreenString("✓"), submissionID)
	return nil
}
