package models

// Priority represents the execution priority tier assigned to a handler.
type Priority string

const (
	// PriorityCritical is reserved for urgent requests and escalations.
	PriorityCritical Priority = "critical"
	// PriorityHigh is for handlers that directly serve the user's goal.
	PriorityHigh Priority = "high"
	// PriorityMedium is for supporting handlers such as profiling.
	PriorityMedium Priority = "medium"
	// PriorityLow is for optional enrichment handlers.
	PriorityLow Priority = "low"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns the sort rank for the priority. Lower ranks execute first.
// Unknown priorities sort after all known ones.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// AtLeast returns the higher of p and floor.
func (p Priority) AtLeast(floor Priority) Priority {
	if p.Rank() <= floor.Rank() {
		return p
	}
	return floor
}
