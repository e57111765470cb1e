package workflow

import (
	"sync/atomic"
	"time"

	"github.com/Konard/problem-solving/pkg/models"
)

// EventType identifies a coordinator event.
type EventType string

const (
	// EventPhaseStarted fires when a phase begins.
	EventPhaseStarted EventType = "phase_started"
	// EventPhaseFinished fires when a phase ends.
	EventPhaseFinished EventType = "phase_finished"
	// EventSubtaskQueued fires when a subtask search is about to start.
	EventSubtaskQueued EventType = "subtask_queued"
	// EventSubtaskFinished fires when a subtask search concluded.
	EventSubtaskFinished EventType = "subtask_finished"
	// EventRunCompleted fires once when a run reaches completed.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed fires once when a run fails.
	EventRunFailed EventType = "run_failed"
)

// Event is one progress notification from the coordinator. The TUI and the
// console narration consume these; the coordinator never blocks on them.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// Phase is the coordinator's phase when the event fired.
	Phase models.Phase
	// SubtaskID identifies the related subtask, if any.
	SubtaskID string
	// Title is the related subtask title, if any.
	Title string
	// Status is the search outcome for subtask_finished events.
	Status models.SearchStatus
	// Message provides context.
	Message string
	// Err carries failure details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// eventEmitter fans coordinator events out to one subscriber channel.
// Emission never blocks the run: when the buffer is full the event is
// dropped and counted.
type eventEmitter struct {
	ch      chan Event
	dropped atomic.Uint64
}

func newEventEmitter(buffer int) *eventEmitter {
	return &eventEmitter{ch: make(chan Event, buffer)}
}

func (e *eventEmitter) emit(ev Event) {
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because no one drained the
// channel in time.
func (e *eventEmitter) Dropped() uint64 {
	return e.dropped.Load()
}
