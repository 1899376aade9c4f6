package handlers

import (
	"context"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// EscalationHandler produces the human-handoff transition message. The
// escalation sub-workflow invokes it directly with the assembled package; it
// is also registered so an explicit "speak to an agent" utterance routes to
// it like any other handler.
type EscalationHandler struct{}

// NewEscalationHandler builds the escalation transition handler.
func NewEscalationHandler() *EscalationHandler {
	return &EscalationHandler{}
}

func (h *EscalationHandler) ID() string { return "escalation" }

func (h *EscalationHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentEscalation}
}

func (h *EscalationHandler) BasePriority() models.Priority { return models.PriorityCritical }

func (h *EscalationHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if err := ctx.Err(); err != nil {
		return handler.Result{}, err
	}
	if req.HealthCheck {
		return handler.Result{HandlerID: h.ID(), Summary: "handoff channel ready", Confidence: 1.0}, nil
	}

	return handler.Result{
		HandlerID: h.ID(),
		Text:      "I'm connecting you with a support specialist who can take it from here. They'll have the full context of our conversation.",
		Summary:   "handed off to human support",
		Payload: map[string]any{
			"handoff_channel": "support_queue",
		},
		Confidence:      1.0,
		NeedsEscalation: true,
	}, nil
}
