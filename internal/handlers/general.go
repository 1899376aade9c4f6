package handlers

import (
	"context"
	"strings"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// GeneralHandler answers greetings, help requests, and anything no other
// handler serves. It is the registry's default fallback.
type GeneralHandler struct{}

// NewGeneralHandler builds the general-assistance handler.
func NewGeneralHandler() *GeneralHandler {
	return &GeneralHandler{}
}

func (h *GeneralHandler) ID() string { return "general-assistant" }

func (h *GeneralHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentGeneral, models.IntentGreeting, models.IntentHelp}
}

func (h *GeneralHandler) BasePriority() models.Priority { return models.PriorityLow }

func (h *GeneralHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if err := ctx.Err(); err != nil {
		return handler.Result{}, err
	}
	if req.HealthCheck {
		return handler.Result{HandlerID: h.ID(), Summary: "ready", Confidence: 1.0}, nil
	}

	var text string
	switch {
	case hasIntent(req.TriggeredBy, models.IntentGreeting):
		text = "Hello! I can help you search products, track orders, manage your cart, or find gift ideas."
	case hasIntent(req.TriggeredBy, models.IntentHelp):
		text = "You can ask me to search for products, recommend gifts, check an order, or manage your cart. Say \"speak to an agent\" any time to reach a person."
	default:
		if strings.TrimSpace(req.Utterance) == "" {
			text = "I didn't catch that. What would you like to do?"
		} else {
			text = "I'm not sure I understood. I can search products, track orders, manage your cart, or suggest gifts."
		}
	}

	return handler.Result{
		HandlerID:  h.ID(),
		Text:       text,
		Summary:    "general assistance",
		Confidence: 0.7,
	}, nil
}

func hasIntent(intents []models.Intent, want models.Intent) bool {
	for _, in := range intents {
		if in == want {
			return true
		}
	}
	return false
}
