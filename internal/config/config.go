// Package config handles configuration loading and management for Concierge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Concierge.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Routing  RoutingRef     `mapstructure:"routing"`
}

// LLMConfig holds settings for the optional Anthropic-backed responder.
type LLMConfig struct {
	// APIKey is the Anthropic API key. May reference an env var as ${VAR}.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier passed to the SDK.
	Model string `mapstructure:"model"`
	// MaxTokens caps the completion length.
	MaxTokens int `mapstructure:"max_tokens"`
}

// TimeoutsConfig holds the pipeline timeout settings.
type TimeoutsConfig struct {
	// Handler bounds a single handler invocation.
	Handler time.Duration `mapstructure:"handler"`
	// Turn bounds a whole turn end to end.
	Turn time.Duration `mapstructure:"turn"`
}

// SessionsConfig holds session lifecycle settings.
type SessionsConfig struct {
	// TTL is the inactivity window after which a session expires.
	TTL time.Duration `mapstructure:"ttl"`
	// DBPath overrides the default SQLite database location.
	DBPath string `mapstructure:"db_path"`
	// HistoryDepth is how many prior turns an escalation snapshot carries.
	HistoryDepth int `mapstructure:"history_depth"`
}

// LoggingConfig holds debug logging settings.
type LoggingConfig struct {
	// Path is the debug log file location; empty disables logging.
	Path string `mapstructure:"path"`
}

// RoutingRef points at the routing table file.
type RoutingRef struct {
	// File is the routing YAML path; empty uses built-in routes.
	File string `mapstructure:"file"`
	// Watch enables hot reload of the routing file.
	Watch bool `mapstructure:"watch"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, CONCIERGE_*)
// 2. Project config (.concierge.yaml in current directory or parent)
// 3. User config (~/.config/concierge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CONCIERGE")
	v.BindEnv("llm.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "claude-3-5-haiku-20241022")
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("timeouts.handler", "5s")
	v.SetDefault("timeouts.turn", "30s")

	v.SetDefault("sessions.ttl", "30m")
	v.SetDefault("sessions.db_path", "")
	v.SetDefault("sessions.history_depth", 10)

	v.SetDefault("logging.path", "")

	v.SetDefault("routing.file", "")
	v.SetDefault("routing.watch", false)
}

// getUserConfigDir returns the XDG config directory for Concierge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "concierge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "concierge")
	}
	return filepath.Join(home, ".config", "concierge")
}

// findProjectConfig searches for .concierge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".concierge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:     "claude-3-5-haiku-20241022",
			MaxTokens: 1024,
		},
		Timeouts: TimeoutsConfig{
			Handler: 5 * time.Second,
			Turn:    30 * time.Second,
		},
		Sessions: SessionsConfig{
			TTL:          30 * time.Minute,
			HistoryDepth: 10,
		},
	}
}
