// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// the nyl terminal client.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.nyl/config.toml
//   - ~/.nyl/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/nyl-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	// Server connection
	Server ServerConfig `toml:"server" json:"server"`

	// Chat behavior
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Retrieval augmentation passthrough
	Rag RagConfig `toml:"rag" json:"rag"`

	// Local cache
	Cache CacheConfig `toml:"cache" json:"cache"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains nyl server connection settings.
type ServerConfig struct {
	// BaseURL is the nyl API server base URL
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the request timeout for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// ChatConfig contains conversation defaults.
type ChatConfig struct {
	// DefaultModel is the model used when a session does not name one
	DefaultModel string `toml:"default_model" json:"default_model"`
	// SystemPrompt is the default system prompt for new sessions
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// Scope restricts session listings: "daily" or "project:<slug>".
	// Empty means all scopes.
	Scope string `toml:"scope" json:"scope"`
	// WindowSize caps how many prior turns ride along on each request
	WindowSize int `toml:"window_size" json:"window_size"`
	// FlushIntervalMs is the streaming render coalescing interval
	FlushIntervalMs int `toml:"flush_interval_ms" json:"flush_interval_ms"`
}

// RagConfig is forwarded opaquely on completion requests when enabled.
type RagConfig struct {
	Enabled        bool   `toml:"enabled" json:"enabled"`
	Source         string `toml:"source" json:"source"`
	TopK           int    `toml:"top_k" json:"top_k"`
	EmbeddingModel string `toml:"embedding_model" json:"embedding_model"`
}

// CacheConfig contains local cache configuration.
type CacheConfig struct {
	// Enabled controls whether the offline cache is active
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite database path (empty = ~/.nyl/cache.db)
	Path string `toml:"path" json:"path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme selects the color theme: "dark" or "light"
	Theme string `toml:"theme" json:"theme"`
	// Markdown enables glamour rendering of assistant responses
	Markdown bool `toml:"markdown" json:"markdown"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://localhost:8000",
			TimeoutSecs: 30,
		},
		Chat: ChatConfig{
			WindowSize:      12,
			FlushIntervalMs: 33,
		},
		Rag: RagConfig{
			TopK: 5,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the nyl configuration directory (~/.nyl).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".nyl"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// CachePath resolves the cache database path, defaulting under the config
// directory.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format is chosen by extension, defaulting to TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the TOML config file. The write is
// atomic so a crash mid-save never leaves a truncated config behind.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// scopePattern matches the scopes the server accepts: the daily view or a
// project identified by a lowercase slug.
var scopePattern = regexp.MustCompile(`^(daily|project:[a-z0-9-]+)$`)

// ValidScope reports whether s is an accepted scope value. Empty is valid
// and means all scopes.
func ValidScope(s string) bool {
	return s == "" || scopePattern.MatchString(s)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("config: server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	if c.Server.TimeoutSecs <= 0 {
		return fmt.Errorf("config: server.timeout_secs must be positive, got %d", c.Server.TimeoutSecs)
	}
	if !ValidScope(c.Chat.Scope) {
		return fmt.Errorf("config: chat.scope %q must be empty, %q, or %q", c.Chat.Scope, "daily", "project:<slug>")
	}
	if c.Chat.WindowSize <= 0 {
		return fmt.Errorf("config: chat.window_size must be positive, got %d", c.Chat.WindowSize)
	}
	if c.Chat.FlushIntervalMs <= 0 {
		return fmt.Errorf("config: chat.flush_interval_ms must be positive, got %d", c.Chat.FlushIntervalMs)
	}
	if c.Rag.Enabled && c.Rag.TopK <= 0 {
		return fmt.Errorf("config: rag.top_k must be positive when rag is enabled, got %d", c.Rag.TopK)
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("config: ui.theme %q must be \"dark\" or \"light\"", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies NYL_* environment variables over the loaded
// values.
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("NYL_SERVER_URL"); base != "" {
		c.Server.BaseURL = base
	}
	if model := os.Getenv("NYL_MODEL"); model != "" {
		c.Chat.DefaultModel = model
	}
	if prompt := os.Getenv("NYL_SYSTEM_PROMPT"); prompt != "" {
		c.Chat.SystemPrompt = prompt
	}
	if scope := os.Getenv("NYL_SCOPE"); scope != "" {
		c.Chat.Scope = scope
	}
	if rag := os.Getenv("NYL_RAG"); rag != "" {
		c.Rag.Enabled = rag == "1" || strings.ToLower(rag) == "true"
	}
	if window := os.Getenv("NYL_WINDOW_SIZE"); window != "" {
		if n, err := strconv.Atoi(window); err == nil {
			c.Chat.WindowSize = n
		}
	}
	if cacheEnabled := os.Getenv("NYL_CACHE"); cacheEnabled != "" {
		c.Cache.Enabled = cacheEnabled == "1" || strings.ToLower(cacheEnabled) == "true"
	}
	if theme := os.Getenv("NYL_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	cfg, err := Load()
	if err != nil {
		cfg = Default()
	}
	SetGlobal(cfg)
	return cfg
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global config.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = nil
}
