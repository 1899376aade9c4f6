package orchestrator

import (
	"time"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/internal/registry"
	"github.com/concierge-labs/concierge/pkg/models"
)

// TurnState is the shared accumulator for one turn. Exactly one exists per
// turn, mutated only by that turn's sequential pipeline and never shared
// across turns. Every handler write lands in its own keyed result slot, so
// the state needs no locking and no rollback.
type TurnState struct {
	// TurnID identifies the turn.
	TurnID string
	// SessionID identifies the owning session.
	SessionID string
	// UserID is the optional user identifier.
	UserID string
	// Utterance is the raw user input.
	Utterance string

	// Intents is the deduplicated, capped, ordered intent list.
	Intents []models.Intent
	// FallbackIntent is true when classification fell back to the default.
	FallbackIntent bool
	// Selections is the resolved handler list in execution order.
	Selections []registry.Selection

	// Results holds per-handler result slots keyed by handler ID.
	Results map[string]handler.Result
	// Invoked lists handler IDs in actual invocation order.
	Invoked []string
	// Skipped lists handlers that never ran because the turn was cut short.
	Skipped []string

	// Escalate is set once any escalation trigger fires.
	Escalate bool
	// EscalationHandled is false when escalation was triggered but the
	// escalation handler was unavailable.
	EscalationHandled bool
	// EscalationReason is the trigger reason code, for observability.
	EscalationReason string
	// EscalationHandler is the routed escalation handler's ID, set by the
	// sub-workflow. The synthesizer uses it to tell the transition message
	// apart from domain answers.
	EscalationHandler string

	// Rerouted is the one-shot guard for the search-to-recommendation hop.
	Rerouted bool

	// Escalation is the assembled handoff package, nil when no trigger fired.
	Escalation *EscalationPackage

	// FailureStreak is the session's consecutive-failure count entering the
	// turn, read at turn start.
	FailureStreak int

	// StartedAt and CompletedAt bound the turn.
	StartedAt   time.Time
	CompletedAt time.Time

	confidenceSum     float64
	confidenceSamples int
	escalationRan     bool
}

// NewTurnState builds the accumulator for one turn. The initial confidence
// is the classifier's match strength.
func NewTurnState(turnID, sessionID, userID, utterance string) *TurnState {
	return &TurnState{
		TurnID:            turnID,
		SessionID:         sessionID,
		UserID:            userID,
		Utterance:         utterance,
		Results:           make(map[string]handler.Result),
		EscalationHandled: true,
		StartedAt:         time.Now(),
	}
}

// SetClassification records the classifier outcome and seeds the running
// confidence with the match strength.
func (st *TurnState) SetClassification(intents []models.Intent, confidence float64, fallback bool) {
	st.Intents = intents
	st.FallbackIntent = fallback
	st.confidenceSum = confidence
	st.confidenceSamples = 1
}

// Confidence returns the running confidence: the mean of the classification
// strength and every handler-reported confidence so far. Failed handlers
// contribute zero.
func (st *TurnState) Confidence() float64 {
	if st.confidenceSamples == 0 {
		return 0
	}
	return st.confidenceSum / float64(st.confidenceSamples)
}

// RecordResult stores a handler result in its keyed slot, appends to the
// invocation list, and folds the handler confidence into the running score.
func (st *TurnState) RecordResult(res handler.Result) {
	st.Results[res.HandlerID] = res
	st.Invoked = append(st.Invoked, res.HandlerID)

	if res.Failed {
		st.confidenceSamples++
		return
	}
	st.confidenceSum += res.Confidence
	st.confidenceSamples++
}

// buildRequest builds the per-handler sub-context view of the turn state.
// Prior results are passed as a copy of the slot map, so replacing or
// removing an entry never reaches the accumulator. Payload maps inside the
// results are shared by reference; handlers treat prior payloads as
// read-only.
func (st *TurnState) buildRequest(sel registry.Selection) handler.Request {
	prior := make(map[string]handler.Result, len(st.Results))
	for id, res := range st.Results {
		prior[id] = res
	}
	return handler.Request{
		TurnID:       st.TurnID,
		SessionID:    st.SessionID,
		UserID:       st.UserID,
		Utterance:    st.Utterance,
		Intents:      append([]models.Intent{}, st.Intents...),
		TriggeredBy:  append([]models.Intent{}, sel.TriggeredBy...),
		Priority:     sel.Priority,
		PriorResults: prior,
		Confidence:   st.Confidence(),
	}
}

// AnyFailed reports whether any recorded handler result is failed.
func (st *TurnState) AnyFailed() bool {
	for _, res := range st.Results {
		if res.Failed {
			return true
		}
	}
	return false
}
