// Package tui provides the terminal user interface for psolve's run command.
//
// This package contains a read-only TUI that displays run progress in
// real-time. It shows:
//   - Current pipeline phase (decomposition through composition)
//   - Per-subtask search outcomes for test and solution artifacts
//   - Activity log with recent events
//
// The TUI is read-only and does not support interactive task submission.
// Users can only quit with 'q' or Ctrl+C.
//
// Usage:
//
//	program, app := tui.NewRunProgram(taskText)
//	go program.Run()
//
//	// Send state updates
//	program.Send(tui.PhaseMsg{Phase: phase, Message: "phase started"})
//
//	// Send log messages
//	program.Send(tui.RunLogMsg{
//	    Timestamp: time.Now(),
//	    Phase:     "solution_search",
//	    Message:   "Starting artifact search",
//	})
//
//	// Signal completion
//	program.Send(tui.RunDoneMsg{Err: nil})
//
// The TUI renders the phase ladder, a progress bar, and per-subtask status
// glyphs for the two artifact searches.
package tui
