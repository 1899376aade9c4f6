package orchestrator

import (
	"time"
)

// EventType represents the type of pipeline event.
type EventType string

const (
	// EventTurnStarted indicates a turn has entered the pipeline.
	EventTurnStarted EventType = "turn_started"
	// EventHandlerStarted indicates a handler invocation has begun.
	EventHandlerStarted EventType = "handler_started"
	// EventHandlerCompleted indicates a handler returned a success result.
	EventHandlerCompleted EventType = "handler_completed"
	// EventHandlerFailed indicates a handler faulted, timed out, or panicked.
	EventHandlerFailed EventType = "handler_failed"
	// EventReroute indicates the one-shot search-to-recommendation re-route.
	EventReroute EventType = "reroute"
	// EventEscalation indicates the escalation sub-workflow ran.
	EventEscalation EventType = "escalation"
	// EventTurnCompleted indicates the turn finished and was synthesized.
	EventTurnCompleted EventType = "turn_completed"
)

// Event is emitted by the pipeline as a turn progresses.
// Subscribers (for example the CLI's verbose mode) consume these to show
// progress; emission never blocks turn processing.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TurnID is the turn the event belongs to.
	TurnID string
	// SessionID is the owning session.
	SessionID string
	// HandlerID is the related handler, if applicable.
	HandlerID string
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Elapsed is the handler execution time, for completion events.
	Elapsed time.Duration
}
