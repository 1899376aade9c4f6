package registry

import (
	"sort"

	"github.com/concierge-labs/concierge/pkg/models"
)

// RequestContext carries the recognized per-request options that affect
// priority resolution and nothing else.
type RequestContext struct {
	// Urgent forces every selected handler to the critical tier.
	Urgent bool
	// UserPremium raises every selected handler to at least the high tier.
	UserPremium bool
}

// Resolve applies request-context overrides to each selection and returns
// the selections in execution order: stable sort by tier rank, ties broken
// by registration order. Identical input always produces identical order.
func (r *Routing) Resolve(selections []Selection, rc RequestContext) []Selection {
	out := make([]Selection, len(selections))
	copy(out, selections)

	for i := range out {
		switch {
		case rc.Urgent:
			out[i].Priority = models.PriorityCritical
		case rc.UserPremium:
			out[i].Priority = out[i].Priority.AtLeast(models.PriorityHigh)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].registration < out[j].registration
	})

	return out
}
