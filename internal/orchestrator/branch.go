package orchestrator

import "github.com/concierge-labs/concierge/pkg/models"

// Branch labels the primary workflow branch a turn follows. The pipeline is
// a plain ordered handler list, not a graph; the branch is the label used
// for precedence decisions, the re-route guard, and observability.
type Branch string

const (
	// BranchEscalation is the human-handoff branch.
	BranchEscalation Branch = "escalation"
	// BranchOrderCart covers order and cart management.
	BranchOrderCart Branch = "order_cart"
	// BranchSearch is product browsing and lookup.
	BranchSearch Branch = "search"
	// BranchRecommendation is suggestion and gift flows.
	BranchRecommendation Branch = "recommendation"
	// BranchSynthesisOnly is the direct-to-synthesis path for greetings,
	// help, and low-signal input.
	BranchSynthesisOnly Branch = "synthesis_only"
)

// SelectBranch picks the primary branch for a turn's intent set. Precedence
// when multiple qualify: escalation, then order/cart management, then
// search, then recommendation, then synthesis-only.
func SelectBranch(intents []models.Intent) Branch {
	has := make(map[models.Intent]bool, len(intents))
	for _, in := range intents {
		has[in] = true
	}

	switch {
	case has[models.IntentEscalation]:
		return BranchEscalation
	case has[models.IntentOrderManagement] || has[models.IntentCartManagement]:
		return BranchOrderCart
	case has[models.IntentSearch]:
		return BranchSearch
	case has[models.IntentRecommendation]:
		return BranchRecommendation
	default:
		return BranchSynthesisOnly
	}
}
