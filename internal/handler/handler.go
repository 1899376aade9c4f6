// Package handler defines the uniform contract implemented by every
// capability handler invoked by the orchestration core.
package handler

import (
	"context"
	"time"

	"github.com/concierge-labs/concierge/pkg/models"
)

// Request is the per-handler view of the turn state. The pipeline builds one
// Request per invocation so handlers never touch the shared accumulator
// directly; cross-handler data dependencies (for example the recommendation
// handler reading prior profiling output) are expressed through PriorResults.
type Request struct {
	// TurnID identifies the turn this invocation belongs to.
	TurnID string
	// SessionID identifies the session, empty for health checks.
	SessionID string
	// UserID is the optional user identifier.
	UserID string
	// Utterance is the raw user utterance for the turn.
	Utterance string
	// Intents is the full ordered intent list detected for the turn.
	Intents []models.Intent
	// TriggeredBy lists the intents that selected this handler.
	TriggeredBy []models.Intent
	// Priority is the tier the resolver assigned to this invocation.
	Priority models.Priority
	// PriorResults holds the results of handlers that already ran this turn,
	// keyed by handler ID.
	PriorResults map[string]Result
	// Confidence is the running turn confidence at invocation time.
	Confidence float64
	// HealthCheck marks a synthetic probe; handlers should answer cheaply
	// and must not mutate any backing store.
	HealthCheck bool
}

// Result is the partial result a handler contributes to the turn. A handler
// either fills the success fields or is marked Failed with an error string;
// faults never propagate as Go errors past the pipeline boundary.
type Result struct {
	// HandlerID identifies the producing handler.
	HandlerID string `json:"handler_id"`
	// Text is optional user-facing response text.
	Text string `json:"text,omitempty"`
	// Summary is an optional one-line description of the structured payload,
	// used by the synthesizer when no handler produced Text.
	Summary string `json:"summary,omitempty"`
	// Payload holds structured output for downstream handlers and the
	// synthesizer.
	Payload map[string]any `json:"payload,omitempty"`
	// Confidence is the handler's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Failed is true when the handler faulted, timed out, or panicked.
	Failed bool `json:"failed"`
	// Err is the internal error string for failed results. It is recorded
	// for observability and never surfaced verbatim to the user.
	Err string `json:"error,omitempty"`
	// NeedsEscalation is set by a handler that wants a human to take over
	// even though it did not fail.
	NeedsEscalation bool `json:"needs_escalation,omitempty"`
	// Elapsed is the observed execution time, recorded by the pipeline.
	Elapsed time.Duration `json:"elapsed"`
}

// Failure builds a failed Result for the given handler and error.
func Failure(handlerID string, err error) Result {
	r := Result{HandlerID: handlerID, Failed: true}
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// Handler is the capability interface implemented by every agent.
type Handler interface {
	// ID returns the stable handler identifier.
	ID() string
	// Intents returns the capability tags this handler serves.
	Intents() []models.Intent
	// BasePriority returns the static default priority tier.
	BasePriority() models.Priority
	// Execute runs the handler against its view of the turn state. A non-nil
	// error or a panic is converted to a failed Result by the pipeline.
	Execute(ctx context.Context, req Request) (Result, error)
}

// Descriptor is the registry's static description of a handler.
type Descriptor struct {
	// ID is the stable handler identifier.
	ID string
	// Intents are the capability tags served.
	Intents []models.Intent
	// BasePriority is the static default tier.
	BasePriority models.Priority
}

// Describe builds a Descriptor from a Handler.
func Describe(h Handler) Descriptor {
	return Descriptor{
		ID:           h.ID(),
		Intents:      append([]models.Intent{}, h.Intents()...),
		BasePriority: h.BasePriority(),
	}
}
