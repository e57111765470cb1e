package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "psolve",
	Short: "Task decomposition and solution search pipeline",
	Long: `psolve decomposes a task into a dependency-ordered subtask graph,
searches for test and solution artifacts per subtask with a bounded
validating retry loop, registers progress in an issue tracker, and
composes the solved artifacts into one deliverable.

Core pipeline:
- Decomposes the task via a generator into validated subtasks
- Orders subtasks into dependency batches
- Searches for a test artifact, then a solution artifact, per subtask
- Registers records and submissions in the configured tracker
- Composes solved artifacts in dependency order

Run 'psolve run "your task"' to start, or 'psolve status' to inspect
the latest run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(versionCmd)
}
