package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// OrderHandler answers order tracking, cancellation, refund, and return
// requests against the catalog's order book.
type OrderHandler struct {
	catalog *Catalog
}

// NewOrderHandler builds an order-management handler over the catalog.
func NewOrderHandler(catalog *Catalog) *OrderHandler {
	return &OrderHandler{catalog: catalog}
}

func (h *OrderHandler) ID() string { return "order-management" }

func (h *OrderHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentOrderManagement}
}

func (h *OrderHandler) BasePriority() models.Priority { return models.PriorityHigh }

func (h *OrderHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if err := ctx.Err(); err != nil {
		return handler.Result{}, err
	}
	if req.HealthCheck {
		return handler.Result{HandlerID: h.ID(), Summary: "order store reachable", Confidence: 1.0}, nil
	}

	orders := h.catalog.OrdersFor(req.UserID)
	if len(orders) == 0 {
		return handler.Result{
			HandlerID:  h.ID(),
			Text:       "I couldn't find any orders on your account.",
			Summary:    "no orders found",
			Payload:    map[string]any{"order_count": 0},
			Confidence: 0.6,
		}, nil
	}

	lower := strings.ToLower(req.Utterance)
	latest := orders[0]
	payload := map[string]any{
		"order_count":   len(orders),
		"latest_order":  latest.ID,
		"latest_status": latest.Status,
	}

	var text string
	switch {
	case strings.Contains(lower, "return") || strings.Contains(lower, "refund"):
		text = fmt.Sprintf("I've started a return for order %s. You'll receive a refund of $%.2f once the item arrives back.", latest.ID, latest.Total)
		payload["action"] = "return_initiated"
	case strings.Contains(lower, "cancel"):
		if latest.Status == "processing" {
			text = fmt.Sprintf("Order %s has been cancelled.", latest.ID)
			payload["action"] = "cancelled"
		} else {
			text = fmt.Sprintf("Order %s has already %s, so it can no longer be cancelled.", latest.ID, latest.Status)
			payload["action"] = "cancel_rejected"
		}
	default:
		if latest.Carrier != "" {
			text = fmt.Sprintf("Your order %s is %s via %s.", latest.ID, latest.Status, latest.Carrier)
		} else {
			text = fmt.Sprintf("Your order %s is currently %s.", latest.ID, latest.Status)
		}
		payload["action"] = "status"
	}

	return handler.Result{
		HandlerID:  h.ID(),
		Text:       text,
		Summary:    fmt.Sprintf("order %s: %s", latest.ID, latest.Status),
		Payload:    payload,
		Confidence: 0.85,
	}, nil
}
