package handlers

import (
	"context"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// ProfileHandler looks up the customer profile so later handlers and the
// synthesizer can personalize. It produces payload only, never response text.
type ProfileHandler struct {
	catalog *Catalog
}

// NewProfileHandler builds a customer-profile handler over the catalog.
func NewProfileHandler(catalog *Catalog) *ProfileHandler {
	return &ProfileHandler{catalog: catalog}
}

func (h *ProfileHandler) ID() string { return "customer-profile" }

func (h *ProfileHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentSearch, models.IntentRecommendation}
}

func (h *ProfileHandler) BasePriority() models.Priority { return models.PriorityMedium }

func (h *ProfileHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if err := ctx.Err(); err != nil {
		return handler.Result{}, err
	}
	if req.HealthCheck {
		return handler.Result{HandlerID: h.ID(), Summary: "profile store reachable", Confidence: 1.0}, nil
	}

	prof, ok := h.catalog.ProfileFor(req.UserID)
	if !ok {
		return handler.Result{
			HandlerID:  h.ID(),
			Summary:    "no profile on record",
			Payload:    map[string]any{"profile_found": false},
			Confidence: 0.5,
		}, nil
	}

	return handler.Result{
		HandlerID: h.ID(),
		Summary:   "customer profile loaded",
		Payload: map[string]any{
			"profile_found": true,
			"segment":       prof.Segment,
			"loyalty_tier":  prof.LoyaltyTier,
		},
		Confidence: 0.95,
	}, nil
}
