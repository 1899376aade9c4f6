package orchestrator

import (
	"strings"
	"time"

	"github.com/concierge-labs/concierge/pkg/models"
)

// Turn-level error codes. These are internal observability codes; raw error
// text is never surfaced to the end user.
const (
	ErrCodeSynthesis = "ERR_SYNTHESIS"
	ErrCodeScheduler = "ERR_SCHEDULER"
	ErrCodeConfig    = "ERR_CONFIG"
)

const (
	genericResponse        = "I wasn't able to complete that request. Please try rephrasing, or ask for a support agent."
	contactSupportResponse = "Something went wrong on our side. Please contact support and we'll sort it out."
	maxSuggestions         = 3
)

// Synthesizer merges the completed turn state into the final TurnResult.
// Synthesize is a pure function of the state and the static templates:
// identical input always produces an identical result.
type Synthesizer struct {
	templates map[string][]models.Suggestion
}

// NewSynthesizer creates a Synthesizer with per-handler suggestion
// templates. A nil map selects the built-in defaults.
func NewSynthesizer(templates map[string][]models.Suggestion) *Synthesizer {
	if templates == nil {
		templates = DefaultSuggestionTemplates()
	}
	return &Synthesizer{templates: templates}
}

// DefaultSuggestionTemplates returns the built-in follow-up suggestions,
// keyed by handler ID.
func DefaultSuggestionTemplates() map[string][]models.Suggestion {
	return map[string][]models.Suggestion{
		"product-search": {
			{Label: "Refine your search", Action: "search_refine"},
			{Label: "See recommendations", Action: "recommend"},
		},
		"recommendation": {
			{Label: "Add a pick to your cart", Action: "cart_add"},
		},
		"order-management": {
			{Label: "Track another order", Action: "order_track"},
			{Label: "Start a return", Action: "order_return"},
		},
		"cart-management": {
			{Label: "Proceed to checkout", Action: "checkout"},
		},
		"general-assistant": {
			{Label: "Search the catalog", Action: "search"},
			{Label: "Get gift ideas", Action: "recommend"},
		},
	}
}

// Synthesize builds the final result from a completed turn state. It
// requires at least one result entry; an empty state is a synthesis failure
// and yields a minimal safe response with an error code.
func (s *Synthesizer) Synthesize(st *TurnState) models.TurnResult {
	base := models.TurnResult{
		IntentsIdentified: append([]models.Intent{}, st.Intents...),
		HandlersUsed:      append([]string{}, st.Invoked...),
		Escalate:          st.Escalate,
		Metadata: models.TurnMetadata{
			Timestamp: st.CompletedAt,
			SessionID: st.SessionID,
			TurnID:    st.TurnID,
		},
	}

	if len(st.Results) == 0 {
		base.Success = false
		base.ResponseText = genericResponse
		base.ErrorCode = ErrCodeSynthesis
		base.Summary.Complexity = complexityLabel(0)
		base.Metadata.WorkflowComplexity = base.Summary.Complexity
		base.Personalization = models.Personalization{Available: false}
		return base
	}

	base.Success = true
	base.ResponseText = s.responseText(st)
	base.Summary = s.summarize(st)
	base.Metadata.WorkflowComplexity = base.Summary.Complexity
	base.Suggestions = s.suggest(st)
	base.Personalization = s.personalize(st)
	base.Metrics = s.measure(st)
	return base
}

// responseText selects the best available response by priority: explicit
// handler text, then a payload summary, then the generic fallback. The
// escalation transition message is merged in additively.
func (s *Synthesizer) responseText(st *TurnState) string {
	// The transition message is identified by the routed escalation handler's
	// ID, never by the NeedsEscalation flag: a domain handler that signals
	// escalation keeps its answer eligible as the primary.
	escID := st.EscalationHandler
	escText := ""
	if escID != "" {
		if res, ok := st.Results[escID]; ok && !res.Failed {
			escText = res.Text
		}
	}

	primary := ""
	for _, id := range st.Invoked {
		res := st.Results[id]
		if res.Failed || id == escID {
			continue
		}
		if res.Text != "" {
			primary = res.Text
			break
		}
	}
	if primary == "" {
		for _, id := range st.Invoked {
			res := st.Results[id]
			if res.Failed || id == escID {
				continue
			}
			if res.Summary != "" {
				primary = res.Summary
				break
			}
		}
	}

	var parts []string
	switch {
	case primary != "":
		parts = append(parts, primary)
		if escText != "" {
			parts = append(parts, escText)
		}
	case escText != "":
		// Nothing else produced text: the transition is the answer, not an
		// addendum to the generic fallback.
		parts = append(parts, escText)
	default:
		parts = append(parts, genericResponse)
	}
	if st.Escalate && !st.EscalationHandled {
		parts = append(parts, contactSupportResponse)
	}
	return strings.Join(parts, " ")
}

func (s *Synthesizer) summarize(st *TurnState) models.WorkflowSummary {
	sum := models.WorkflowSummary{HandlerCount: len(st.Invoked)}
	for _, id := range st.Invoked {
		if st.Results[id].Failed {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}
	if sum.HandlerCount > 0 {
		sum.SuccessRate = float64(sum.Succeeded) / float64(sum.HandlerCount)
	}
	sum.Complexity = complexityLabel(sum.HandlerCount)
	return sum
}

func complexityLabel(handlerCount int) string {
	switch {
	case handlerCount <= 1:
		return "simple"
	case handlerCount <= 3:
		return "standard"
	default:
		return "complex"
	}
}

// suggest derives up to three follow-up suggestions from the static
// templates, in invocation order, skipping failed handlers and duplicates.
func (s *Synthesizer) suggest(st *TurnState) []models.Suggestion {
	var out []models.Suggestion
	seen := make(map[string]bool)
	for _, id := range st.Invoked {
		if st.Results[id].Failed {
			continue
		}
		for _, sug := range s.templates[id] {
			if seen[sug.Action] {
				continue
			}
			seen[sug.Action] = true
			out = append(out, sug)
			if len(out) == maxSuggestions {
				return out
			}
		}
	}
	return out
}

// personalize attaches segment data only when a profiling result is present;
// otherwise it is explicitly marked unavailable.
func (s *Synthesizer) personalize(st *TurnState) models.Personalization {
	for _, id := range st.Invoked {
		res := st.Results[id]
		if res.Failed {
			continue
		}
		seg, segOK := res.Payload["segment"].(string)
		tier, tierOK := res.Payload["loyalty_tier"].(string)
		if segOK && tierOK {
			return models.Personalization{Available: true, Segment: seg, LoyaltyTier: tier}
		}
	}
	return models.Personalization{Available: false}
}

func (s *Synthesizer) measure(st *TurnState) models.PerformanceMetrics {
	m := models.PerformanceMetrics{}
	for _, id := range st.Invoked {
		res := st.Results[id]
		m.Timings = append(m.Timings, models.HandlerTiming{HandlerID: id, Elapsed: res.Elapsed})
		m.Total += res.Elapsed
	}
	switch {
	case m.Total < 500*time.Millisecond:
		m.Efficiency = "fast"
	case m.Total < 2*time.Second:
		m.Efficiency = "normal"
	default:
		m.Efficiency = "slow"
	}
	return m
}
