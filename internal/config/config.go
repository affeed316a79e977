// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mira configuration.
type Config struct {
	// API configuration
	API APIConfig `toml:"api"`

	// Chat configuration
	Chat ChatConfig `toml:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// DataDir is where the local database lives (empty = ~/.mira)
	DataDir string `toml:"data_dir"`
}

// APIConfig contains remote API configuration.
type APIConfig struct {
	// BaseURL is the chat API base URL
	BaseURL string `toml:"base_url"`
	// UserID identifies the current user to the API
	UserID string `toml:"user_id"`
	// TimeoutSecs bounds API requests, including a whole streaming turn
	TimeoutSecs int `toml:"timeout_secs"`
}

// Timeout returns TimeoutSecs as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// ChatConfig contains conversation defaults.
type ChatConfig struct {
	// Temperature is the sampling temperature for new conversations (0 = server default)
	Temperature float64 `toml:"temperature"`
	// MaxTokens caps assistant responses (0 = server default)
	MaxTokens int `toml:"max_tokens"`
	// WebSearch enables web search for new conversations
	WebSearch bool `toml:"web_search"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark" or "light"
	Theme string `toml:"theme"`
	// ShowTokens displays token counts after each turn
	ShowTokens bool `toml:"show_tokens"`
	// ShowReasoning expands reasoning sections by default
	ShowReasoning bool `toml:"show_reasoning"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "https://api-test.mirahr.ai",
			UserID:      "",
			TimeoutSecs: 30,
		},

		Chat: ChatConfig{
			Temperature: 0,
			MaxTokens:   0,
			WebSearch:   false,
		},

		UI: UIConfig{
			Theme:         "dark",
			ShowTokens:    true,
			ShowReasoning: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the mira configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mira"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DatabasePath returns the path of the local SQLite database.
func (c *Config) DatabasePath() (string, error) {
	dir := c.DataDir
	if dir == "" {
		d, err := ConfigDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	return filepath.Join(dir, "mira.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.mira/config.toml, fills defaults,
// applies environment overrides, and validates. A missing file yields
// the defaults.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation, for tests and the --config flag.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file with 0600
// permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# mira configuration file")
	fmt.Fprintln(file, "# Generated by mira - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns the first error.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
		}
	}

	if c.API.TimeoutSecs < 1 {
		return ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be at least 1, got %d", c.API.TimeoutSecs),
		}
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %v", c.Chat.Temperature),
		}
	}

	if c.Chat.MaxTokens < 0 {
		return ValidationError{
			Field:   "chat.max_tokens",
			Message: "cannot be negative",
		}
	}

	validThemes := map[string]bool{"dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		return ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light", c.UI.Theme),
		}
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MIRA_API_BASE_URL: overrides api.base_url
//   - MIRA_USER_ID: overrides api.user_id
//   - MIRA_DATA_DIR: overrides data_dir
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("MIRA_API_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}
	if user := os.Getenv("MIRA_USER_ID"); user != "" {
		c.API.UserID = user
	}
	if dir := os.Getenv("MIRA_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
}
