// Package registry maps intents to capability handlers and resolves the
// priority order handlers execute in. A Routing value is an immutable
// snapshot built once at startup (or rebuilt wholesale on a config reload)
// and passed by reference into the pipeline; nothing mutates it afterwards.
package registry

import (
	"fmt"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

// Config carries optional routing overrides applied when building a Routing.
type Config struct {
	// Routes overrides the intent→handler table. When empty, routes are
	// derived from each handler's declared intents in registration order.
	Routes map[models.Intent][]string
	// Priorities overrides handlers' static base priority tiers.
	Priorities map[string]models.Priority
	// Fallback is the handler substituted when a lookup would be empty.
	// When empty, the first registered handler serving the general intent
	// is used.
	Fallback string
}

// Routing is the immutable intent→handler routing snapshot.
type Routing struct {
	handlers     map[string]handler.Handler
	order        map[string]int
	ordered      []handler.Handler
	routes       map[models.Intent][]string
	basePriority map[string]models.Priority
	fallbackID   string
}

// Selection is one handler chosen for a turn, tagged with the intents that
// triggered it and the priority tier it will run at.
type Selection struct {
	// HandlerID identifies the selected handler.
	HandlerID string
	// TriggeredBy lists the detected intents that routed to this handler.
	TriggeredBy []models.Intent
	// Priority is the assigned tier. Lookup assigns the base tier; Resolve
	// applies request-context overrides.
	Priority models.Priority
	// Fallback is true when the registry substituted the default handler
	// because no route matched.
	Fallback bool
	// registration is the handler's registration index, the tie-break key
	// for deterministic ordering.
	registration int
}

// NewRouting builds a Routing from the registered handlers and overrides.
// Registration order is the order of the handlers slice. Configuration
// faults (unknown route targets, invalid tiers, missing fallback) are
// returned as errors so the caller can fail startup rather than a turn.
func NewRouting(handlers []handler.Handler, cfg Config) (*Routing, error) {
	if len(handlers) == 0 {
		return nil, fmt.Errorf("no handlers registered")
	}

	r := &Routing{
		handlers:     make(map[string]handler.Handler, len(handlers)),
		order:        make(map[string]int, len(handlers)),
		routes:       make(map[models.Intent][]string),
		basePriority: make(map[string]models.Priority, len(handlers)),
	}

	for i, h := range handlers {
		d := handler.Describe(h)
		if d.ID == "" {
			return nil, fmt.Errorf("handler at index %d has empty ID", i)
		}
		if _, dup := r.handlers[d.ID]; dup {
			return nil, fmt.Errorf("duplicate handler ID %q", d.ID)
		}
		r.handlers[d.ID] = h
		r.order[d.ID] = i
		r.ordered = append(r.ordered, h)
		r.basePriority[d.ID] = d.BasePriority

		// Derive routes from the descriptor's capability tags; registration
		// order fixes the route order.
		for _, in := range d.Intents {
			r.routes[in] = append(r.routes[in], d.ID)
		}
	}

	// Apply route overrides wholesale per intent.
	for in, ids := range cfg.Routes {
		for _, id := range ids {
			if _, ok := r.handlers[id]; !ok {
				return nil, fmt.Errorf("route for intent %q targets unknown handler %q", in, id)
			}
		}
		r.routes[in] = append([]string{}, ids...)
	}

	for id, p := range cfg.Priorities {
		if _, ok := r.handlers[id]; !ok {
			return nil, fmt.Errorf("priority override for unknown handler %q", id)
		}
		if !p.Valid() {
			return nil, fmt.Errorf("invalid priority %q for handler %q", p, id)
		}
		r.basePriority[id] = p
	}

	fallback := cfg.Fallback
	if fallback == "" {
		if ids := r.routes[models.IntentGeneral]; len(ids) > 0 {
			fallback = ids[0]
		}
	}
	if fallback == "" {
		return nil, fmt.Errorf("no fallback handler: configure one or register a handler for %q", models.IntentGeneral)
	}
	if _, ok := r.handlers[fallback]; !ok {
		return nil, fmt.Errorf("fallback handler %q is not registered", fallback)
	}
	r.fallbackID = fallback

	return r, nil
}

// Handler returns the handler registered under id, or nil.
func (r *Routing) Handler(id string) handler.Handler {
	return r.handlers[id]
}

// Handlers returns all registered handlers in registration order.
func (r *Routing) Handlers() []handler.Handler {
	return append([]handler.Handler{}, r.ordered...)
}

// FallbackID returns the default handler substituted on empty lookups.
func (r *Routing) FallbackID() string {
	return r.fallbackID
}

// BasePriority returns the configured base tier for a handler.
func (r *Routing) BasePriority(id string) models.Priority {
	if p, ok := r.basePriority[id]; ok {
		return p
	}
	return models.PriorityMedium
}

// registrationIndex returns the tie-break index for a handler.
func (r *Routing) registrationIndex(id string) int {
	return r.order[id]
}

// Lookup unions handler IDs across all detected intents, tagging each with
// its triggering intents. The result preserves intent order first and route
// order second, and is never empty: when no route matches, the fallback
// handler is substituted at high priority.
func (r *Routing) Lookup(intents []models.Intent) []Selection {
	var out []Selection
	index := make(map[string]int)

	for _, in := range intents {
		for _, id := range r.routes[in] {
			if pos, ok := index[id]; ok {
				out[pos].TriggeredBy = append(out[pos].TriggeredBy, in)
				continue
			}
			index[id] = len(out)
			out = append(out, Selection{
				HandlerID:    id,
				TriggeredBy:  []models.Intent{in},
				Priority:     r.BasePriority(id),
				registration: r.registrationIndex(id),
			})
		}
	}

	if len(out) == 0 {
		out = append(out, Selection{
			HandlerID:    r.fallbackID,
			TriggeredBy:  append([]models.Intent{}, intents...),
			Priority:     models.PriorityHigh,
			Fallback:     true,
			registration: r.registrationIndex(r.fallbackID),
		})
	}

	return out
}
