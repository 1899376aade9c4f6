package models

// Intent is a classified label describing the user's goal for an utterance.
type Intent string

const (
	// IntentSearch covers product browsing and lookup requests.
	IntentSearch Intent = "search"
	// IntentRecommendation covers suggestion and gift requests.
	IntentRecommendation Intent = "recommendation"
	// IntentOrderManagement covers order tracking, cancellation, and returns.
	IntentOrderManagement Intent = "order_management"
	// IntentCartManagement covers cart and checkout operations.
	IntentCartManagement Intent = "cart_management"
	// IntentEscalation indicates the user asked for a human operator.
	IntentEscalation Intent = "escalation"
	// IntentGreeting covers salutations with no actionable request.
	IntentGreeting Intent = "greeting"
	// IntentHelp covers questions about using the assistant itself.
	IntentHelp Intent = "help"
	// IntentGeneral is the fallback when no keyword matches.
	IntentGeneral Intent = "general_assistance"
)

// Valid returns true if the intent is a known label.
func (i Intent) Valid() bool {
	switch i {
	case IntentSearch, IntentRecommendation, IntentOrderManagement,
		IntentCartManagement, IntentEscalation, IntentGreeting,
		IntentHelp, IntentGeneral:
		return true
	default:
		return false
	}
}

// MaxIntentsPerTurn caps the deduplicated intent list for a single turn.
const MaxIntentsPerTurn = 5
