package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// RecommendationHandler suggests products. When a customer-profile result is
// present in the prior outputs it biases picks toward the profile segment;
// otherwise it recommends the in-stock catalog front-runners.
type RecommendationHandler struct {
	catalog *Catalog
}

// NewRecommendationHandler builds a recommendation handler over the catalog.
func NewRecommendationHandler(catalog *Catalog) *RecommendationHandler {
	return &RecommendationHandler{catalog: catalog}
}

func (h *RecommendationHandler) ID() string { return "recommendation" }

func (h *RecommendationHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentRecommendation}
}

func (h *RecommendationHandler) BasePriority() models.Priority { return models.PriorityMedium }

func (h *RecommendationHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if err := ctx.Err(); err != nil {
		return handler.Result{}, err
	}
	if req.HealthCheck {
		return handler.Result{HandlerID: h.ID(), Summary: "recommender ready", Confidence: 1.0}, nil
	}

	picks := h.pick(req, 3)
	if len(picks) == 0 {
		return handler.Result{
			HandlerID:  h.ID(),
			Summary:    "no recommendations available",
			Confidence: 0.4,
		}, nil
	}

	var names []string
	for _, p := range picks {
		names = append(names, p.Name)
	}

	return handler.Result{
		HandlerID:  h.ID(),
		Text:       fmt.Sprintf("You might like: %s.", strings.Join(names, ", ")),
		Summary:    fmt.Sprintf("%d recommendations", len(picks)),
		Payload:    map[string]any{"recommendations": names},
		Confidence: 0.8,
	}, nil
}

// pick selects up to n in-stock products, preferring the category implied by
// the profiling handler's output when it ran earlier this turn.
func (h *RecommendationHandler) pick(req handler.Request, n int) []Product {
	preferred := ""
	if prof, ok := req.PriorResults["customer-profile"]; ok && !prof.Failed {
		if seg, ok := prof.Payload["segment"].(string); ok && seg == "frequent_buyer" {
			preferred = "audio"
		}
	}

	var picks []Product
	for _, p := range h.catalog.Products {
		if !p.InStock {
			continue
		}
		if preferred != "" && p.Category != preferred {
			continue
		}
		picks = append(picks, p)
		if len(picks) == n {
			return picks
		}
	}
	if preferred != "" && len(picks) < n {
		for _, p := range h.catalog.Products {
			if !p.InStock || p.Category == preferred {
				continue
			}
			picks = append(picks, p)
			if len(picks) == n {
				break
			}
		}
	}
	return picks
}
