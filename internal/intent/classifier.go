// Package intent classifies free-text utterances into ordered intent labels.
// Classification is keyword-driven and never fails: when nothing matches, the
// classifier falls back to the general-assistance intent.
package intent

import (
	"strings"

	"github.com/concierge-labs/concierge/pkg/models"
)

// keywordRule binds one lowercase keyword to the intents it contributes.
// A single keyword may contribute multiple intents, and multiple keywords in
// one utterance each contribute independently.
type keywordRule struct {
	keyword string
	intents []models.Intent
}

// keywordRules is the static keyword table. It is a slice, not a map: the
// scan order fixes the detection order of intents, which downstream ordering
// (registry union, priority tie-breaks) depends on being deterministic.
var keywordRules = []keywordRule{
	{"search", []models.Intent{models.IntentSearch}},
	{"find", []models.Intent{models.IntentSearch}},
	{"looking for", []models.Intent{models.IntentSearch}},
	{"show me", []models.Intent{models.IntentSearch}},
	{"browse", []models.Intent{models.IntentSearch}},
	{"price", []models.Intent{models.IntentSearch}},
	{"in stock", []models.Intent{models.IntentSearch}},

	{"recommend", []models.Intent{models.IntentRecommendation}},
	{"suggest", []models.Intent{models.IntentRecommendation}},
	{"suggestion", []models.Intent{models.IntentRecommendation}},
	{"gift", []models.Intent{models.IntentRecommendation}},
	{"ideas", []models.Intent{models.IntentRecommendation}},

	{"order", []models.Intent{models.IntentOrderManagement}},
	{"track", []models.Intent{models.IntentOrderManagement}},
	{"tracking", []models.Intent{models.IntentOrderManagement}},
	{"delivery", []models.Intent{models.IntentOrderManagement}},
	{"shipment", []models.Intent{models.IntentOrderManagement}},
	{"refund", []models.Intent{models.IntentOrderManagement}},
	{"cancel", []models.Intent{models.IntentOrderManagement, models.IntentCartManagement}},

	{"cart", []models.Intent{models.IntentCartManagement}},
	{"basket", []models.Intent{models.IntentCartManagement}},
	{"checkout", []models.Intent{models.IntentCartManagement}},
	{"add to", []models.Intent{models.IntentCartManagement}},
	{"remove", []models.Intent{models.IntentCartManagement}},

	{"human", []models.Intent{models.IntentEscalation}},
	{"agent", []models.Intent{models.IntentEscalation}},
	{"representative", []models.Intent{models.IntentEscalation}},
	{"speak to", []models.Intent{models.IntentEscalation}},
	{"complaint", []models.Intent{models.IntentEscalation}},

	{"hello", []models.Intent{models.IntentGreeting}},
	{"hi", []models.Intent{models.IntentGreeting}},
	{"hey", []models.Intent{models.IntentGreeting}},

	{"help", []models.Intent{models.IntentHelp}},
	{"how do i", []models.Intent{models.IntentHelp}},
}

// pluralNouns are product nouns whose plural form flips the "return" keyword
// from a return-merchandise request to a browse request.
var pluralNouns = []string{"products", "items", "orders", "things"}

const (
	// matchedConfidence is the classification strength when at least one
	// keyword matched.
	matchedConfidence = 1.0
	// fallbackConfidence is the classification strength of the default
	// general-assistance intent.
	fallbackConfidence = 0.4
)

// Classifier turns an utterance into a deduplicated, ordered intent list.
type Classifier struct {
	rules []keywordRule
}

// NewClassifier creates a Classifier with the default keyword table.
func NewClassifier() *Classifier {
	return &Classifier{rules: keywordRules}
}

// Classification is the outcome of classifying one utterance.
type Classification struct {
	// Intents is the deduplicated intent list in detection order, capped at
	// models.MaxIntentsPerTurn, never empty.
	Intents []models.Intent
	// Confidence is the classification strength: matchedConfidence when any
	// keyword hit, fallbackConfidence for the default intent.
	Confidence float64
	// Fallback is true when no keyword matched.
	Fallback bool
}

// Classify maps an utterance to its intents. It normalizes case, scans the
// keyword table, applies the "return" disambiguation, deduplicates, and caps
// the result. It never fails: an unmatched utterance yields IntentGeneral.
func (c *Classifier) Classify(utterance string) Classification {
	lower := strings.ToLower(strings.TrimSpace(utterance))

	var ordered []models.Intent
	seen := make(map[models.Intent]bool)
	add := func(intents ...models.Intent) {
		for _, in := range intents {
			if !seen[in] {
				seen[in] = true
				ordered = append(ordered, in)
			}
		}
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(lower) {
		words[strings.Trim(w, ".,!?;:'\"")] = true
	}

	// The "return" keyword is polysemous (return merchandise vs. browse
	// "all returned products") and is resolved separately below.
	for _, rule := range c.rules {
		if matchKeyword(lower, words, rule.keyword) {
			add(rule.intents...)
		}
	}

	if words["return"] || words["returns"] {
		add(c.disambiguateReturn(lower, words))
	}

	if len(ordered) == 0 {
		return Classification{
			Intents:    []models.Intent{models.IntentGeneral},
			Confidence: fallbackConfidence,
			Fallback:   true,
		}
	}

	if len(ordered) > models.MaxIntentsPerTurn {
		ordered = ordered[:models.MaxIntentsPerTurn]
	}

	return Classification{Intents: ordered, Confidence: matchedConfidence}
}

// matchKeyword reports whether the keyword appears in the utterance. Phrase
// keywords match as substrings; single-word keywords match whole words only,
// allowing a plural "s", so that "hi" does not fire on "shipment".
func matchKeyword(lower string, words map[string]bool, keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(lower, keyword)
	}
	return words[keyword] || words[keyword+"s"]
}

// disambiguateReturn resolves the polysemous "return" keyword.
//
// Known fragility, preserved for compatibility: the decision rests on a
// word-count/plural heuristic. A short utterance with a singular product noun
// ("return a product") is a return-merchandise request; an utterance with
// "all" or a plural product noun ("return all products") is a browse request.
func (c *Classifier) disambiguateReturn(lower string, words map[string]bool) models.Intent {
	if words["all"] {
		return models.IntentSearch
	}
	for _, noun := range pluralNouns {
		if words[noun] {
			return models.IntentSearch
		}
	}
	// Long utterances without a plural marker are still treated as browse
	// requests. The cutoff is arbitrary but load-bearing for compatibility.
	if len(strings.Fields(lower)) > 10 {
		return models.IntentSearch
	}
	return models.IntentOrderManagement
}
