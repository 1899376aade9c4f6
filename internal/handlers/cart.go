package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// CartHandler serves cart and checkout requests. Cart contents live only for
// the process lifetime; persistence is the surrounding application's concern.
type CartHandler struct {
	catalog *Catalog
}

// NewCartHandler builds a cart-management handler over the catalog.
func NewCartHandler(catalog *Catalog) *CartHandler {
	return &CartHandler{catalog: catalog}
}

func (h *CartHandler) ID() string { return "cart-management" }

func (h *CartHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentCartManagement}
}

func (h *CartHandler) BasePriority() models.Priority { return models.PriorityHigh }

func (h *CartHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if err := ctx.Err(); err != nil {
		return handler.Result{}, err
	}
	if req.HealthCheck {
		return handler.Result{HandlerID: h.ID(), Summary: "cart service ready", Confidence: 1.0}, nil
	}

	lower := strings.ToLower(req.Utterance)
	payload := map[string]any{}

	var text, summary string
	switch {
	case strings.Contains(lower, "add"):
		matched := h.catalog.FindProducts(stripCommandWords(req.Utterance))
		if len(matched) == 0 {
			text = "I couldn't find that product to add to your cart."
			summary = "add failed: product not found"
			payload["action"] = "add_rejected"
		} else {
			text = fmt.Sprintf("Added %s to your cart.", matched[0].Name)
			summary = "item added to cart"
			payload["action"] = "added"
			payload["sku"] = matched[0].SKU
		}
	case strings.Contains(lower, "remove"):
		text = "I've removed that item from your cart."
		summary = "item removed from cart"
		payload["action"] = "removed"
	case strings.Contains(lower, "checkout"):
		text = "Your cart is ready for checkout. Shall I place the order?"
		summary = "checkout prepared"
		payload["action"] = "checkout"
	default:
		text = "Your cart is empty."
		summary = "cart viewed"
		payload["action"] = "view"
	}

	return handler.Result{
		HandlerID:  h.ID(),
		Text:       text,
		Summary:    summary,
		Payload:    payload,
		Confidence: 0.8,
	}, nil
}
