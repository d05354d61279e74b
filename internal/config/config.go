// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete datachat configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	// Backend API connection
	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`

	// Chat behavior
	Chat ChatConfig `toml:"chat" json:"chat" yaml:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Log configuration
	Log LogConfig `toml:"log" json:"log" yaml:"log"`
}

// BackendConfig contains the dataset assistant API settings.
type BackendConfig struct {
	// URL is the base URL serving /api/chat and the search/query endpoints.
	URL string `toml:"url" json:"url" yaml:"url"`
	// TimeoutSecs bounds every backend request, including command cards.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`
	// RequestsPerSecond throttles outbound requests. 0 disables the limiter.
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second"`
	// MaxResponseMB caps the size of a single response body.
	MaxResponseMB int `toml:"max_response_mb" json:"max_response_mb" yaml:"max_response_mb"`
}

// ChatConfig controls how assistant replies are handled.
type ChatConfig struct {
	// AutoExecute runs every command card as soon as the reply arrives and
	// ends the turn only after all of them finish.
	AutoExecute bool `toml:"auto_execute" json:"auto_execute" yaml:"auto_execute"`
	// Parsers lists the reply parser strategies in the order they run.
	// Known values: "inline", "fenced", "retrieved".
	Parsers []string `toml:"parsers" json:"parsers" yaml:"parsers"`
	// HistoryFile stores line-editor history for the REPL. Empty disables it.
	HistoryFile string `toml:"history_file" json:"history_file" yaml:"history_file"`
}

// UIConfig contains UI preferences.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// ShowSidebar shows the dataset/datacard panel in the TUI.
	ShowSidebar bool `toml:"show_sidebar" json:"show_sidebar" yaml:"show_sidebar"`
	// Markdown renders assistant text through glamour.
	Markdown bool `toml:"markdown" json:"markdown" yaml:"markdown"`
	// WordWrap is the wrap width for markdown output in line mode.
	WordWrap int `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`
	// File is the log path. Empty means ~/.datachat/datachat.log.
	File string `toml:"file" json:"file" yaml:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultBackendURL is where the dataset assistant API listens by default.
	DefaultBackendURL = "http://localhost:8000"

	// DefaultTimeoutSecs is the default per-request timeout.
	DefaultTimeoutSecs = 60

	// DefaultMaxResponseMB is the default response size cap.
	DefaultMaxResponseMB = 10
)

// ValidParsers are the reply parser strategy names.
var ValidParsers = []string{"inline", "fenced", "retrieved"}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			URL:           DefaultBackendURL,
			TimeoutSecs:   DefaultTimeoutSecs,
			MaxResponseMB: DefaultMaxResponseMB,
		},
		Chat: ChatConfig{
			AutoExecute: false,
			Parsers:     append([]string(nil), ValidParsers...),
		},
		UI: UIConfig{
			Theme:       "auto",
			ShowSidebar: true,
			Markdown:    true,
			WordWrap:    80,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Timeout returns the backend timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// MaxResponseBytes returns the response cap in bytes.
func (c *Config) MaxResponseBytes() int64 {
	return int64(c.Backend.MaxResponseMB) << 20
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the datachat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("DATACHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".datachat"), nil
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

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default location.
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
// Files ending in .json are decoded as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# datachat configuration file\n")
	buf.WriteString("# Environment variables (DATACHAT_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.URL == "" {
		errs = append(errs, ValidationError{Field: "backend.url", Message: "must not be empty"})
	} else if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "backend.url", Message: fmt.Sprintf("invalid URL %q (expected http:// or https://)", c.Backend.URL)})
	}

	if c.Backend.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{Field: "backend.timeout_secs", Message: "must be positive"})
	} else if c.Backend.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{Field: "backend.timeout_secs", Message: "must be at most 3600"})
	}

	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "backend.requests_per_second", Message: "must not be negative"})
	}

	if c.Backend.MaxResponseMB <= 0 || c.Backend.MaxResponseMB > 512 {
		errs = append(errs, ValidationError{Field: "backend.max_response_mb", Message: "must be between 1 and 512"})
	}

	if len(c.Chat.Parsers) == 0 {
		errs = append(errs, ValidationError{Field: "chat.parsers", Message: "at least one parser is required"})
	}
	seen := make(map[string]bool)
	for _, p := range c.Chat.Parsers {
		if !isValidParser(p) {
			errs = append(errs, ValidationError{Field: "chat.parsers", Message: fmt.Sprintf("unknown parser %q (valid: %s)", p, strings.Join(ValidParsers, ", "))})
		}
		if seen[p] {
			errs = append(errs, ValidationError{Field: "chat.parsers", Message: fmt.Sprintf("duplicate parser %q", p)})
		}
		seen[p] = true
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("invalid theme %q (valid: dark, light, auto)", c.UI.Theme)})
	}

	if c.UI.WordWrap < 20 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must be at least 20"})
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("invalid level %q (valid: debug, info, warn, error)", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func isValidParser(name string) bool {
	for _, p := range ValidParsers {
		if p == name {
			return true
		}
	}
	return false
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.URL == "" {
		c.Backend.URL = d.Backend.URL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Backend.MaxResponseMB == 0 {
		c.Backend.MaxResponseMB = d.Backend.MaxResponseMB
	}
	if c.Chat.Parsers == nil {
		c.Chat.Parsers = d.Chat.Parsers
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - DATACHAT_BACKEND_URL: overrides backend.url
//   - DATACHAT_TIMEOUT: overrides backend.timeout_secs
//   - DATACHAT_AUTO_EXECUTE: overrides chat.auto_execute
//   - DATACHAT_THEME: overrides ui.theme
//   - DATACHAT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("DATACHAT_BACKEND_URL"); u != "" {
		c.Backend.URL = u
	}

	if t := os.Getenv("DATACHAT_TIMEOUT"); t != "" {
		if secs, err := strconv.Atoi(t); err == nil {
			c.Backend.TimeoutSecs = secs
		} else if d, err := time.ParseDuration(t); err == nil {
			c.Backend.TimeoutSecs = int(d.Seconds())
		}
	}

	if auto := os.Getenv("DATACHAT_AUTO_EXECUTE"); auto != "" {
		c.Chat.AutoExecute = auto == "1" || strings.EqualFold(auto, "true")
	}

	if theme := os.Getenv("DATACHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if level := os.Getenv("DATACHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Chat.Parsers = append([]string(nil), c.Chat.Parsers...)
	return &clone
}

// String returns the configuration as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
