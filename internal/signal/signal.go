// Package signal relays filesystem control markers to a running workflow.
// Another process (or the user) drops a marker file into .psolve/signals/
// and the watcher translates it into a pause, resume, or stop call.
package signal

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Marker file names understood by the watcher.
const (
	MarkerPause  = "pause"
	MarkerResume = "resume"
	MarkerStop   = "stop"
)

// Handler receives control signals. The workflow coordinator satisfies it.
type Handler interface {
	Pause()
	Resume()
	Stop()
}

// Watcher monitors the signals directory and forwards markers to a Handler.
// Markers are consumed (removed) once acted on, so pause and resume can
// alternate freely.
type Watcher struct {
	dir     string
	handler Handler

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// Dir returns the signals directory for a workspace.
func Dir(workspace string) string {
	return filepath.Join(workspace, ".psolve", "signals")
}

// Watch creates the signals directory and starts watching it. Markers
// already present are applied immediately. When the filesystem watcher
// cannot be set up, a polling loop takes over instead of failing.
func Watch(workspace string, handler Handler) (*Watcher, error) {
	dir := Dir(workspace)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		handler: handler,
		done:    make(chan struct{}),
	}

	// Consume anything left over from before the watcher existed.
	w.scan()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		go w.poll()
		return w, nil
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		go w.poll()
		return w, nil
	}
	w.watcher = fsw

	go w.watch()
	return w, nil
}

// watch reacts to marker creation events.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0 {
				w.apply(filepath.Base(event.Name))
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// poll is the fallback when no filesystem watcher is available.
func (w *Watcher) poll() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

// scan applies every marker currently in the directory.
func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.apply(entry.Name())
	}
}

// apply dispatches one marker to the handler and consumes the file.
func (w *Watcher) apply(name string) {
	switch name {
	case MarkerPause:
		w.handler.Pause()
	case MarkerResume:
		w.handler.Resume()
	case MarkerStop:
		w.handler.Stop()
	default:
		return
	}
	os.Remove(filepath.Join(w.dir, name))
}

// Close stops the watcher. Safe to call once.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true

	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

// SendPause drops a pause marker for a workspace.
func SendPause(workspace string) error {
	return send(workspace, MarkerPause)
}

// SendResume drops a resume marker for a workspace.
func SendResume(workspace string) error {
	return send(workspace, MarkerResume)
}

// SendStop drops a stop marker for a workspace.
func SendStop(workspace string) error {
	return send(workspace, MarkerStop)
}

func send(workspace, marker string) error {
	dir := Dir(workspace)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, marker), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes every marker for a workspace.
func Clear(workspace string) {
	dir := Dir(workspace)
	for _, marker := range []string{MarkerPause, MarkerResume, MarkerStop} {
		os.Remove(filepath.Join(dir, marker))
	}
}
