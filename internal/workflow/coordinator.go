// Package workflow drives a task through the decomposition, search, and
// composition pipeline as a linear phase machine.
package workflow

import (
	"errors"
	"sync"
	"time"

	"github.com/Konard/problem-solving/internal/compose"
	"github.com/Konard/problem-solving/internal/decompose"
	"github.com/Konard/problem-solving/internal/generate"
	"github.com/Konard/problem-solving/internal/search"
	"github.com/Konard/problem-solving/internal/state"
	"github.com/Konard/problem-solving/internal/track"
	"github.com/Konard/problem-solving/pkg/models"
)

// ErrNoViableSolutions means no subtask produced a usable solution artifact,
// so there is nothing to compose. It is fatal to the run.
var ErrNoViableSolutions = errors.New("no viable solutions")

// Clock supplies timestamps to the coordinator. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Config wires a Coordinator. Generator and Tracker are required; everything
// else has a working default. Production values are chosen by the CLI
// assembly, never in here.
type Config struct {
	// Generator produces decompositions and candidate artifacts.
	Generator generate.Generator
	// Tracker registers records and artifact submissions.
	Tracker track.Tracker
	// Clock supplies timestamps (default: SystemClock).
	Clock Clock
	// Logger receives debug narration (default: no-op).
	Logger *DebugLogger
	// Store persists run progress. Nil disables persistence; store errors
	// are logged and never fail a run.
	Store *state.Store
	// MaxAttempts bounds generator calls per candidate search (default: 3).
	MaxAttempts int
	// Concurrency bounds parallel searches within one batch. Values below 2
	// mean strictly sequential execution.
	Concurrency int
	// Rules overrides the structural validation rules (default: search
	// defaults over RuleConfig).
	Rules []search.Rule
	// RuleConfig drives marker matching for rules and scoring.
	RuleConfig search.RuleConfig
	// FreeformMerge asks the generator for a narrative merge after
	// composition. Its failure degrades to the deterministic result.
	FreeformMerge bool
	// EventBuffer sizes the event channel (default: 64). Events beyond a
	// full buffer are dropped, never blocked on.
	EventBuffer int
}

// Coordinator owns a run's state and walks it through the phases. One run at
// a time; a fresh run replaces the previous state.
type Coordinator struct {
	gen         generate.Generator
	tracker     track.Tracker
	clock       Clock
	logger      *DebugLogger
	store       *state.Store
	decomposer  *decompose.Decomposer
	engine      *search.Engine
	composer    *compose.Composer
	concurrency int
	freeform    bool

	emitter *eventEmitter

	// mu guards state, pause, and running. State is only written by the
	// goroutine inside Run; readers take snapshots.
	mu      sync.RWMutex
	state   *State
	pause   *PauseController
	running bool
}

// New creates a Coordinator from the given wiring.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Generator == nil {
		return nil, errors.New("workflow: generator is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("workflow: tracker is required")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}

	decomposer := decompose.New(cfg.Generator)
	decomposer.SetDebugLog(logger.Log)
	decomposer.SetNow(clock.Now)

	engine := search.NewEngine(cfg.Generator, search.Config{
		MaxAttempts: cfg.MaxAttempts,
		Rules:       cfg.Rules,
		RuleConfig:  cfg.RuleConfig,
	})
	engine.SetDebugLog(logger.Log)

	return &Coordinator{
		gen:         cfg.Generator,
		tracker:     cfg.Tracker,
		clock:       clock,
		logger:      logger,
		store:       cfg.Store,
		decomposer:  decomposer,
		engine:      engine,
		composer:    compose.New(),
		concurrency: concurrency,
		freeform:    cfg.FreeformMerge,
		emitter:     newEventEmitter(buffer),
		state:       newState(),
		pause:       NewPauseController(),
	}, nil
}

// Snapshot returns a copy of the current run state.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.snapshot()
}

// Progress reports the current completion percentage. The value only moves
// forward during a run; a failure freezes it where it was.
func (c *Coordinator) Progress() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.ProgressPct
}

// Phase reports the coordinator's current phase.
func (c *Coordinator) Phase() models.Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Phase
}

// Pause raises the advisory pause flag. The phase in flight finishes; the
// next transition waits until Resume.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	p := c.pause
	if !c.state.Paused {
		c.state.Paused = true
		c.state.PausedAt = c.clock.Now()
	}
	c.mu.Unlock()

	p.Pause()
	c.logger.Log("[workflow] paused")
}

// Resume clears the pause flag and lets the run proceed.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	p := c.pause
	if c.state.Paused {
		c.state.Paused = false
		c.state.ResumedAt = c.clock.Now()
	}
	c.mu.Unlock()

	p.Resume()
	c.logger.Log("[workflow] resumed")
}

// Stop abandons the active run at the next phase boundary. It does not
// prevent a later Run.
func (c *Coordinator) Stop() {
	c.mu.RLock()
	p := c.pause
	c.mu.RUnlock()

	p.Stop()
	c.logger.Log("[workflow] stop requested")
}

// Reset discards the current state and returns the coordinator to idle with
// a fresh run id. It refuses to reset while a run is active.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("workflow: cannot reset while a run is active")
	}
	c.state = newState()
	c.pause = NewPauseController()
	return nil
}

// Events returns the channel the coordinator narrates on. The channel is
// never closed; when its buffer is full, events are dropped (see Dropped).
func (c *Coordinator) Events() <-chan Event {
	return c.emitter.ch
}

// Dropped reports how many events were discarded because the event buffer
// was full.
func (c *Coordinator) Dropped() uint64 {
	return c.emitter.Dropped()
}

// pauseController returns the controller for the run in flight.
func (c *Coordinator) pauseController() *PauseController {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pause
}

// emit publishes an event stamped with the coordinator's clock.
func (c *Coordinator) emit(ev Event) {
	ev.Timestamp = c.clock.Now()
	c.emitter.emit(ev)
}
