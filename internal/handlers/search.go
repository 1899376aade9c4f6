package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// SearchHandler answers product browsing and lookup requests from the
// catalog. A zero-result search leaves an empty results payload, which the
// pipeline may use to re-route to the recommendation branch.
type SearchHandler struct {
	catalog *Catalog
}

// NewSearchHandler builds a search handler over the given catalog.
func NewSearchHandler(catalog *Catalog) *SearchHandler {
	return &SearchHandler{catalog: catalog}
}

func (h *SearchHandler) ID() string { return "product-search" }

func (h *SearchHandler) Intents() []models.Intent {
	return []models.Intent{models.IntentSearch}
}

func (h *SearchHandler) BasePriority() models.Priority { return models.PriorityHigh }

// Execute searches the catalog with the utterance stripped of command words.
func (h *SearchHandler) Execute(ctx context.Context, req handler.Request) (handler.Result, error) {
	if err := ctx.Err(); err != nil {
		return handler.Result{}, err
	}
	if req.HealthCheck {
		return handler.Result{HandlerID: h.ID(), Summary: "catalog reachable", Confidence: 1.0}, nil
	}

	query := stripCommandWords(req.Utterance)
	found := h.catalog.FindProducts(query)

	payload := map[string]any{
		"query":        query,
		"result_count": len(found),
	}
	var names []string
	for _, p := range found {
		names = append(names, p.Name)
	}
	if len(names) > 0 {
		payload["results"] = names
	}

	res := handler.Result{
		HandlerID:  h.ID(),
		Payload:    payload,
		Confidence: 0.9,
	}
	switch len(found) {
	case 0:
		res.Summary = "no products matched"
		res.Confidence = 0.5
	case 1:
		res.Text = fmt.Sprintf("I found %s at $%.2f.", found[0].Name, found[0].Price)
		res.Summary = "1 product matched"
	default:
		res.Text = fmt.Sprintf("I found %d products: %s.", len(found), strings.Join(names, ", "))
		res.Summary = fmt.Sprintf("%d products matched", len(found))
	}
	return res, nil
}

// commandWords are utterance words that carry intent, not query content.
var commandWords = map[string]bool{
	"search": true, "find": true, "show": true, "me": true, "for": true,
	"looking": true, "browse": true, "price": true, "of": true, "the": true,
	"a": true, "an": true, "i": true, "am": true, "want": true, "to": true,
	"buy": true, "in": true, "stock": true, "is": true, "return": true,
	"all": true,
}

func stripCommandWords(utterance string) string {
	var kept []string
	for _, w := range strings.Fields(strings.ToLower(utterance)) {
		w = strings.Trim(w, ".,!?")
		if w == "" || commandWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
