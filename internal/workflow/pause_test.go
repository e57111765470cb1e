package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func awaitWait(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("WaitIfPaused did not return")
		return nil
	}
}

func TestPauseController_WaitWhenNotPaused(t *testing.T) {
	p := NewPauseController()
	if err := p.WaitIfPaused(context.Background()); err != nil {
		t.Fatalf("WaitIfPaused() error = %v", err)
	}
}

func TestPauseController_ResumeUnblocksWait(t *testing.T) {
	p := NewPauseController()
	p.Pause()
	if !p.IsPaused() {
		t.Fatal("IsPaused() = false after Pause")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- p.WaitIfPaused(context.Background()) }()

	select {
	case err := <-errCh:
		t.Fatalf("WaitIfPaused() returned %v while paused", err)
	case <-time.After(50 * time.Millisecond):
	}

	p.Resume()
	if err := awaitWait(t, errCh); err != nil {
		t.Fatalf("WaitIfPaused() error = %v after resume", err)
	}
	if p.IsPaused() {
		t.Error("IsPaused() = true after Resume")
	}
}

func TestPauseController_StopUnblocksWait(t *testing.T) {
	p := NewPauseController()
	p.Pause()

	errCh := make(chan error, 1)
	go func() { errCh <- p.WaitIfPaused(context.Background()) }()

	p.Stop()
	if err := awaitWait(t, errCh); !errors.Is(err, ErrStopped) {
		t.Fatalf("WaitIfPaused() error = %v, want %v", err, ErrStopped)
	}
	if !p.IsStopped() {
		t.Error("IsStopped() = false after Stop")
	}
}

func TestPauseController_StopWithoutPause(t *testing.T) {
	p := NewPauseController()
	p.Stop()
	if err := p.WaitIfPaused(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("WaitIfPaused() error = %v, want %v", err, ErrStopped)
	}
}

func TestPauseController_ContextCancelUnblocksWait(t *testing.T) {
	p := NewPauseController()
	p.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.WaitIfPaused(ctx) }()

	select {
	case err := <-errCh:
		t.Fatalf("WaitIfPaused() returned %v while paused", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := awaitWait(t, errCh); !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitIfPaused() error = %v, want %v", err, context.Canceled)
	}
}

func TestPauseController_ResumeWithoutPauseIsNoop(t *testing.T) {
	p := NewPauseController()
	p.Resume()
	if p.IsPaused() || p.IsStopped() {
		t.Error("Resume on a fresh controller changed its flags")
	}
}
