package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Konard/problem-solving/internal/tui"
	"github.com/Konard/problem-solving/internal/workflow"
)

// runWithTUI runs the coordinator with an interactive TUI.
func runWithTUI(ctx context.Context, coord *workflow.Coordinator, taskText, workspace string) (retErr error) {
	verbose := os.Getenv("PSOLVE_DEBUG") != ""

	// Suppress log output while TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runWithTUI: %v", r)
		}
	}()

	program, _ := tui.NewRunProgram(taskText)
	if program == nil {
		return fmt.Errorf("failed to create TUI program (nil)")
	}

	if verbose {
		fmt.Println("[DEBUG] runWithTUI: TUI program created")
	}

	// Channel to signal coordinator completion
	runDone := make(chan error, 1)

	// Start event forwarding goroutine
	go forwardEventsToTUI(program, coord.Events())

	// Start coordinator in background
	go func() {
		defer func() {
			if r := recover(); r != nil {
				runDone <- fmt.Errorf("PANIC in coordinator: %v", r)
			}
		}()
		_, err := coord.Run(ctx, taskText)
		runDone <- err
	}()

	tuiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tuiDone <- fmt.Errorf("PANIC in TUI: %v", r)
			}
		}()
		_, err := program.Run()
		tuiDone <- err
	}()

	// Wait for either completion
	select {
	case err := <-runDone:
		// Coordinator finished - the forwarder already delivered the
		// RunDoneMsg, so just wait for the user to quit (press q).
		<-tuiDone
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		if path, werr := writeComposition(workspace, coord); werr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not write composed solution: %v\n", werr)
		} else if path != "" {
			fmt.Printf("Composed solution written to %s\n", path)
		}
		return nil

	case err := <-tuiDone:
		// User quit before the run finished.
		if verbose {
			fmt.Printf("[DEBUG] runWithTUI: TUI done, err=%v\n", err)
		}
		return err
	}
}

// forwardEventsToTUI converts workflow events to TUI messages.
func forwardEventsToTUI(program *tea.Program, events <-chan workflow.Event) {
	for ev := range events {
		switch ev.Type {
		case workflow.EventPhaseStarted:
			program.Send(tui.PhaseMsg{Phase: ev.Phase, Message: "phase started"})
		case workflow.EventSubtaskQueued:
			program.Send(tui.SubtaskQueuedMsg{
				SubtaskID: ev.SubtaskID,
				Title:     ev.Title,
				Phase:     ev.Phase,
			})
		case workflow.EventSubtaskFinished:
			program.Send(tui.SubtaskFinishedMsg{
				SubtaskID: ev.SubtaskID,
				Title:     ev.Title,
				Phase:     ev.Phase,
				Status:    ev.Status,
				Message:   ev.Message,
			})
		case workflow.EventRunCompleted:
			program.Send(tui.RunDoneMsg{Message: fmt.Sprintf("Run completed: %s.", ev.Message)})
		case workflow.EventRunFailed:
			program.Send(tui.RunDoneMsg{Err: ev.Err, Message: ev.Message})
		}
	}
}
