package workflow

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped means the run was abandoned via Stop. Phase execution unwinds
// with this error; the run ends in the failed phase like any other aborted
// run.
var ErrStopped = errors.New("workflow stopped")

// PauseController holds the advisory pause/stop flags for a run. Pausing
// never interrupts an in-flight phase; the coordinator consults the
// controller at phase boundaries only.
type PauseController struct {
	mu      sync.RWMutex
	cond    *sync.Cond
	paused  bool
	stopped bool
}

// NewPauseController creates an unpaused controller.
func NewPauseController() *PauseController {
	p := &PauseController{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Pause raises the advisory pause flag. The current phase finishes; the next
// one waits.
func (p *PauseController) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume clears the pause flag and wakes anything gated on it.
func (p *PauseController) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		p.cond.Broadcast()
	}
}

// Stop abandons the run at the next boundary. It also unblocks a paused
// wait.
func (p *PauseController) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		p.cond.Broadcast()
	}
}

// IsPaused reports the advisory pause flag.
func (p *PauseController) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// IsStopped reports whether Stop has been called.
func (p *PauseController) IsStopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// WaitIfPaused blocks while the pause flag is up. It returns ErrStopped once
// Stop has been called and the context error once the context ends.
func (p *PauseController) WaitIfPaused(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused && !p.stopped {
		// One goroutine turns context cancellation into a wakeup.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.cond.Broadcast()
				p.mu.Unlock()
			case <-done:
			}
		}()

		for p.paused && !p.stopped {
			p.cond.Wait()
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}

	if p.stopped {
		return ErrStopped
	}
	return ctx.Err()
}
