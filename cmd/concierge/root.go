package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/concierge-labs/concierge/internal/config"
	"github.com/concierge-labs/concierge/internal/handlers"
	"github.com/concierge-labs/concierge/internal/orchestrator"
	"github.com/concierge-labs/concierge/internal/registry"
	"github.com/concierge-labs/concierge/internal/state"
	"github.com/concierge-labs/concierge/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Conversational shopping assistant orchestrator",
	Long: `Concierge routes each user utterance through a set of capability
handlers (search, recommendations, orders, cart, profile) and synthesizes a
single response.

With no arguments, starts an interactive chat session.

Core behavior:
- Classifies intent from free text with a keyword table
- Resolves and priority-orders handlers per turn
- Contains per-handler faults; a single broken handler never kills a turn
- Escalates to a human handoff on failure or low confidence
- Persists sessions and turn history in SQLite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles the wired-up runtime for a command invocation.
type app struct {
	cfg   *config.Config
	orch  *orchestrator.Orchestrator
	store *state.DB
	watch *config.RoutingWatcher
}

// buildApp loads configuration and wires the store, handlers, routing, and
// orchestrator. withStore=false skips SQLite for commands that don't need it.
func buildApp(withStore bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{cfg: cfg}

	if withStore {
		path := cfg.Sessions.DBPath
		if path == "" {
			path = state.DefaultDBPath()
		}
		db, err := state.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening session store: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating session store: %w", err)
		}
		a.store = db
	}

	suite := handlers.Builtin(nil)
	if key, err := config.GetAPIKey(cfg); err == nil {
		llm, err := handlers.NewLLMHandler(handlers.LLMConfig{
			APIKey:    key,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
		if err == nil {
			suite = append(suite, llm)
		}
	}

	regCfg := registry.Config{}
	var routingFile *config.RoutingFile
	if cfg.Routing.File != "" {
		routingFile, err = config.LoadRoutingFile(cfg.Routing.File)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("loading routing file: %w", err)
		}
		regCfg = registry.Config{
			Routes:     routingFile.IntentRoutes(),
			Priorities: routingFile.PriorityOverrides(),
			Fallback:   routingFile.Fallback,
		}
	}

	routing, err := registry.NewRouting(suite, regCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building routing: %w", err)
	}

	logger, err := orchestrator.NewDebugLogger(cfg.Logging.Path)
	if err != nil {
		logger = orchestrator.NopLogger()
	}

	var store state.Store
	if a.store != nil {
		store = a.store
	}
	var suggestions map[string][]models.Suggestion
	if routingFile != nil {
		suggestions = routingFile.SuggestionTemplates()
	}
	orch, err := orchestrator.New(orchestrator.Options{
		Routing:        routing,
		Store:          store,
		Logger:         logger,
		HandlerTimeout: cfg.Timeouts.Handler,
		TurnTimeout:    cfg.Timeouts.Turn,
		HistoryDepth:   cfg.Sessions.HistoryDepth,
		Suggestions:    suggestions,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}
	a.orch = orch

	// Hot reload swaps a freshly validated snapshot in between turns.
	if cfg.Routing.File != "" && cfg.Routing.Watch {
		watcher, err := config.WatchRoutingFile(cfg.Routing.File,
			func(rf *config.RoutingFile) {
				reloaded, err := registry.NewRouting(suite, registry.Config{
					Routes:     rf.IntentRoutes(),
					Priorities: rf.PriorityOverrides(),
					Fallback:   rf.Fallback,
				})
				if err == nil {
					orch.SetRouting(reloaded)
				}
			},
			nil)
		if err == nil {
			a.watch = watcher
		}
	}

	return a, nil
}

// Close releases the app's resources in reverse wiring order.
func (a *app) Close() {
	if a.watch != nil {
		a.watch.Close()
	}
	if a.orch != nil {
		a.orch.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
