package orchestrator

import (
	"context"
	"time"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/internal/state"
	"github.com/concierge-labs/concierge/pkg/models"
)

// Escalation trigger reason codes.
const (
	ReasonHandlerFailure   = "handler_failure"
	ReasonExplicitSignal   = "explicit_signal"
	ReasonLowConfidence    = "low_confidence"
	ReasonRepeatedFailures = "repeated_failures"
)

// Confidence thresholds for the escalation check. The final check before
// synthesis uses the lower threshold.
const (
	midTurnConfidenceFloor = 0.5
	finalConfidenceFloor   = 0.3
)

// repeatedFailureLimit is the per-session consecutive-failure count that
// forces escalation.
const repeatedFailureLimit = 3

// EscalationPackage is the self-sufficient handoff bundle assembled for a
// human operator: everything needed to resume without re-deriving context.
type EscalationPackage struct {
	// Reason is the trigger reason code.
	Reason string `json:"reason"`
	// SessionID and TurnID locate the conversation.
	SessionID string `json:"session_id"`
	TurnID    string `json:"turn_id"`
	// History is the last turns of the session, oldest first.
	History []state.TurnRecord `json:"history"`
	// PriorOutputs are the handler results accumulated this turn.
	PriorOutputs map[string]handler.Result `json:"prior_outputs"`
	// OriginHandler is the handler whose result triggered escalation, empty
	// for confidence and streak triggers.
	OriginHandler string `json:"origin_handler,omitempty"`
	// Channel is the target handoff channel.
	Channel string `json:"channel"`
	// Timestamp is when the package was assembled.
	Timestamp time.Time `json:"timestamp"`
}

// HistoryProvider supplies recent session turns for escalation packages.
// state.DB satisfies it; a nil provider yields packages without history.
type HistoryProvider interface {
	RecentTurns(sessionID string, n int) ([]state.TurnRecord, error)
}

// checkTrigger evaluates the escalation triggers against the state and the
// most recent handler result. It returns the first matching reason and the
// originating handler ID, or an empty reason when nothing fired.
func checkTrigger(st *TurnState, last *handler.Result, final bool) (reason, origin string) {
	if last != nil {
		if last.Failed {
			return ReasonHandlerFailure, last.HandlerID
		}
		if last.NeedsEscalation {
			return ReasonExplicitSignal, last.HandlerID
		}
	}

	floor := midTurnConfidenceFloor
	if final {
		floor = finalConfidenceFloor
	}
	if st.Confidence() < floor {
		return ReasonLowConfidence, ""
	}

	if st.FailureStreak >= repeatedFailureLimit {
		return ReasonRepeatedFailures, ""
	}

	return "", ""
}

// runEscalation assembles the handoff package and invokes the escalation
// handler once per turn. Escalation is additive: it merges a transition
// message into the turn and never halts remaining handlers. When the
// escalation handler is unavailable the turn degrades gracefully.
func (p *Pipeline) runEscalation(ctx context.Context, st *TurnState, reason, origin string) {
	st.Escalate = true
	if st.EscalationReason == "" {
		st.EscalationReason = reason
	}
	if st.escalationRan {
		return
	}
	st.escalationRan = true

	pkg := p.assemblePackage(st, reason, origin)
	st.Escalation = &pkg

	debugLog("turn %s: escalation triggered (reason=%s origin=%s)", st.TurnID, reason, origin)
	p.emitter.Emit(Event{
		Type:      EventEscalation,
		TurnID:    st.TurnID,
		SessionID: st.SessionID,
		HandlerID: origin,
		Message:   reason,
	})

	// Find the escalation handler through the routing table. A fallback
	// substitution means no escalation route exists.
	sels := p.routing.Lookup([]models.Intent{models.IntentEscalation})
	if len(sels) == 0 || sels[0].Fallback {
		st.EscalationHandled = false
		return
	}
	escID := sels[0].HandlerID
	st.EscalationHandler = escID

	// Already ran this turn (explicit escalation intent): reuse its output.
	if _, done := st.Results[escID]; done {
		return
	}

	h := p.routing.Handler(escID)
	if h == nil {
		st.EscalationHandled = false
		return
	}

	res := p.invoke(ctx, h, st.buildRequest(sels[0]))
	st.RecordResult(res)
	if res.Failed {
		st.EscalationHandled = false
	}
}

func (p *Pipeline) assemblePackage(st *TurnState, reason, origin string) EscalationPackage {
	pkg := EscalationPackage{
		Reason:        reason,
		SessionID:     st.SessionID,
		TurnID:        st.TurnID,
		PriorOutputs:  make(map[string]handler.Result, len(st.Results)),
		OriginHandler: origin,
		Channel:       "support_queue",
		Timestamp:     time.Now(),
	}
	for id, res := range st.Results {
		pkg.PriorOutputs[id] = res
	}
	if p.history != nil {
		if turns, err := p.history.RecentTurns(st.SessionID, p.historyDepth); err == nil {
			pkg.History = turns
		} else {
			debugLog("turn %s: escalation history unavailable: %v", st.TurnID, err)
		}
	}
	return pkg
}
