// Package models defines the shared value types exchanged between the
// orchestration core, the capability handlers, and the CLI.
package models

import "time"

// Suggestion is a ranked follow-up action offered to the user after a turn.
type Suggestion struct {
	// Label is the user-facing text of the suggestion.
	Label string `json:"label"`
	// Action is the machine-readable action key.
	Action string `json:"action"`
}

// Personalization carries segment data attached to a turn result when a
// profiling result was available. Available is false when no profiling
// handler ran during the turn.
type Personalization struct {
	Available   bool   `json:"available"`
	Segment     string `json:"segment,omitempty"`
	LoyaltyTier string `json:"loyalty_tier,omitempty"`
}

// WorkflowSummary describes what the pipeline did during a turn.
type WorkflowSummary struct {
	// HandlerCount is the number of handlers invoked.
	HandlerCount int `json:"handler_count"`
	// Succeeded is the number of handlers that returned a success payload.
	Succeeded int `json:"succeeded"`
	// Failed is the number of handlers that faulted or timed out.
	Failed int `json:"failed"`
	// SuccessRate is Succeeded divided by HandlerCount, 0 when nothing ran.
	SuccessRate float64 `json:"success_rate"`
	// Complexity is a coarse label: simple, standard, or complex.
	Complexity string `json:"complexity"`
}

// HandlerTiming records the observed elapsed time of one handler invocation.
type HandlerTiming struct {
	HandlerID string        `json:"handler_id"`
	Elapsed   time.Duration `json:"elapsed"`
}

// PerformanceMetrics summarizes per-handler timings for a turn.
type PerformanceMetrics struct {
	Timings []HandlerTiming `json:"timings"`
	// Total is the sum of handler elapsed times.
	Total time.Duration `json:"total"`
	// Efficiency classifies the total: fast, normal, or slow.
	Efficiency string `json:"efficiency"`
}

// TurnMetadata carries bookkeeping fields on a turn result.
type TurnMetadata struct {
	Timestamp          time.Time `json:"timestamp"`
	SessionID          string    `json:"session_id"`
	TurnID             string    `json:"turn_id"`
	WorkflowComplexity string    `json:"workflow_complexity"`
}

// TurnResult is the synthesized outcome of one request/response cycle.
type TurnResult struct {
	// Success is false only for turn-level failures; individual handler
	// faults leave it true with Escalate set.
	Success bool `json:"success"`
	// ResponseText is the user-facing response.
	ResponseText string `json:"response_text"`
	// IntentsIdentified lists the classified intents in detection order.
	IntentsIdentified []Intent `json:"intents_identified"`
	// HandlersUsed lists handler IDs in invocation order.
	HandlersUsed []string `json:"handlers_used"`
	// Escalate is true when the turn was handed off to a human operator.
	Escalate bool `json:"escalate"`
	// ErrorCode is an internal code set on turn-level failures; it is never
	// a raw error message.
	ErrorCode string `json:"error_code,omitempty"`

	Summary         WorkflowSummary    `json:"summary"`
	Suggestions     []Suggestion       `json:"suggestions,omitempty"`
	Personalization Personalization    `json:"personalization"`
	Metrics         PerformanceMetrics `json:"metrics"`
	Metadata        TurnMetadata       `json:"metadata"`
}
