package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/concierge-labs/concierge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Display the effective configuration after merging defaults, the user
config (~/.config/concierge/config.yaml), the project config
(.concierge.yaml), and environment variables. The API key is masked.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented .concierge.yaml template",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	keyDisplay := "(not set)"
	if key, err := config.GetAPIKey(cfg); err == nil {
		keyDisplay = fmt.Sprintf("%s (from %s)", config.MaskAPIKey(key), config.GetAPIKeySource(cfg))
	}

	fmt.Printf("llm.api_key: %s\n", keyDisplay)
	fmt.Printf("llm.model: %s\n", cfg.LLM.Model)
	fmt.Printf("llm.max_tokens: %d\n", cfg.LLM.MaxTokens)
	fmt.Printf("timeouts.handler: %s\n", cfg.Timeouts.Handler)
	fmt.Printf("timeouts.turn: %s\n", cfg.Timeouts.Turn)
	fmt.Printf("sessions.ttl: %s\n", cfg.Sessions.TTL)
	fmt.Printf("sessions.db_path: %s\n", orDefault(cfg.Sessions.DBPath, "(default)"))
	fmt.Printf("sessions.history_depth: %d\n", cfg.Sessions.HistoryDepth)
	fmt.Printf("logging.path: %s\n", orDefault(cfg.Logging.Path, "(disabled)"))
	fmt.Printf("routing.file: %s\n", orDefault(cfg.Routing.File, "(built-in routes)"))
	fmt.Printf("routing.watch: %t\n", cfg.Routing.Watch)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	const path = ".concierge.yaml"
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("%s already exists, not overwriting.\n", path)
		return nil
	}

	template := `# Concierge Project Configuration
# This file overrides defaults from ~/.config/concierge/config.yaml

# llm:
#   api_key: ${ANTHROPIC_API_KEY}
#   model: claude-3-5-haiku-20241022
#   max_tokens: 1024

# timeouts:
#   handler: 5s
#   turn: 30s

# sessions:
#   ttl: 30m
#   history_depth: 10

# logging:
#   path: .concierge/debug.log

# routing:
#   file: routing.yaml
#   watch: true
`

	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
