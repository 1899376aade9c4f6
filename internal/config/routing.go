package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/concierge-labs/concierge/pkg/models"
)

// SuggestionTemplate is one static follow-up suggestion keyed by the handler
// that ran.
type SuggestionTemplate struct {
	Label  string `yaml:"label"`
	Action string `yaml:"action"`
}

// RoutingFile is the YAML routing table. It overrides the routes derived
// from handler capability tags; omitted sections keep the derived values.
type RoutingFile struct {
	// Fallback names the handler substituted on empty lookups.
	Fallback string `yaml:"fallback"`
	// Routes maps intent labels to ordered handler IDs.
	Routes map[string][]string `yaml:"routes"`
	// Priorities overrides handlers' base priority tiers.
	Priorities map[string]string `yaml:"priorities"`
	// Suggestions maps handler IDs to follow-up suggestion templates.
	Suggestions map[string][]SuggestionTemplate `yaml:"suggestions"`
}

// LoadRoutingFile reads and validates a routing YAML file.
func LoadRoutingFile(path string) (*RoutingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing file: %w", err)
	}
	return ParseRoutingFile(data)
}

// ParseRoutingFile parses and validates routing YAML.
func ParseRoutingFile(data []byte) (*RoutingFile, error) {
	var rf RoutingFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse routing file: %w", err)
	}
	if err := rf.Validate(); err != nil {
		return nil, err
	}
	return &rf, nil
}

// Validate checks intent labels and priority tiers. Handler IDs are checked
// later against the actual registration list when the snapshot is built.
func (rf *RoutingFile) Validate() error {
	for label := range rf.Routes {
		if !models.Intent(label).Valid() {
			return fmt.Errorf("routing file: unknown intent %q", label)
		}
	}
	for id, tier := range rf.Priorities {
		if !models.Priority(tier).Valid() {
			return fmt.Errorf("routing file: invalid priority %q for handler %q", tier, id)
		}
	}
	return nil
}

// IntentRoutes converts the string-keyed route table to intent keys.
func (rf *RoutingFile) IntentRoutes() map[models.Intent][]string {
	if len(rf.Routes) == 0 {
		return nil
	}
	out := make(map[models.Intent][]string, len(rf.Routes))
	for label, ids := range rf.Routes {
		out[models.Intent(label)] = append([]string{}, ids...)
	}
	return out
}

// PriorityOverrides converts the string-valued priority table to tiers.
func (rf *RoutingFile) PriorityOverrides() map[string]models.Priority {
	if len(rf.Priorities) == 0 {
		return nil
	}
	out := make(map[string]models.Priority, len(rf.Priorities))
	for id, tier := range rf.Priorities {
		out[id] = models.Priority(tier)
	}
	return out
}

// SuggestionTemplates converts the suggestion table to model values.
func (rf *RoutingFile) SuggestionTemplates() map[string][]models.Suggestion {
	if len(rf.Suggestions) == 0 {
		return nil
	}
	out := make(map[string][]models.Suggestion, len(rf.Suggestions))
	for id, templates := range rf.Suggestions {
		for _, tmpl := range templates {
			out[id] = append(out[id], models.Suggestion{Label: tmpl.Label, Action: tmpl.Action})
		}
	}
	return out
}
