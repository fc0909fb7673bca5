// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wokushop/wokuchat/internal/backend"
	"github.com/wokushop/wokuchat/internal/util"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the top-level wokuchat configuration.
type Config struct {
	// Version is the config schema version, used by Migrate.
	Version string `toml:"version" json:"version"`

	// Backend configures the completion API client.
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Storage configures session persistence.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configures the terminal interface.
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig contains completion backend configuration.
type BackendConfig struct {
	// BaseURL is the API base, e.g. "https://api.openai.com/v1".
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKey is the bearer token. Prefer WOKUCHAT_API_KEY over
	// writing this to disk.
	APIKey string `toml:"api_key" json:"api_key"`
	// Model is the chat model identifier.
	Model string `toml:"model" json:"model"`
	// SystemPrompt, when non-empty, is prepended to every request.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// Streaming selects SSE delivery instead of one-shot responses.
	Streaming bool `toml:"streaming" json:"streaming"`
	// TimeoutSecs bounds a single non-streaming request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries caps retry attempts for transient failures.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RequestsPerMinute is the client-side rate limit (0 = unlimited).
	RequestsPerMinute int     `toml:"requests_per_minute" json:"requests_per_minute"`
	Temperature       float64 `toml:"temperature" json:"temperature"`
	MaxTokens         int     `toml:"max_tokens" json:"max_tokens"`
}

// StorageConfig contains session persistence configuration.
type StorageConfig struct {
	// Driver selects the persistence adapter: "file" or "sqlite".
	Driver string `toml:"driver" json:"driver"`
	// Path overrides the default data file location. Empty means
	// ~/.wokuchat/sessions.json (file) or ~/.wokuchat/sessions.db (sqlite).
	Path string `toml:"path" json:"path"`
	// Encrypt enables at-rest AES-256-GCM encryption. The passphrase is
	// never stored; it comes from WOKUCHAT_PASSPHRASE.
	Encrypt bool `toml:"encrypt" json:"encrypt"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme" json:"theme"`
	// ShowTokens displays token usage under assistant replies.
	ShowTokens bool `toml:"show_tokens" json:"show_tokens"`
	// ShowResponseTime displays latency under assistant replies.
	ShowResponseTime bool `toml:"show_response_time" json:"show_response_time"`
	// Markdown renders assistant replies through the markdown renderer.
	Markdown bool `toml:"markdown" json:"markdown"`
	// CompactMode hides the session sidebar by default.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:           backend.DefaultBaseURL,
			APIKey:            "",
			Model:             backend.DefaultModel,
			SystemPrompt:      "",
			Streaming:         true,
			TimeoutSecs:       60,
			MaxRetries:        backend.DefaultMaxRetries,
			RequestsPerMinute: 60,
			Temperature:       backend.DefaultTemperature,
			MaxTokens:         backend.DefaultMaxTokens,
		},

		Storage: StorageConfig{
			Driver:  "file",
			Path:    "",
			Encrypt: false,
		},

		UI: UIConfig{
			Theme:            "auto",
			ShowTokens:       true,
			ShowResponseTime: true,
			Markdown:         true,
			CompactMode:      false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the wokuchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".wokuchat"), nil
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

// EnsureConfigDir creates the config directory if it does not exist.
// SECURITY: Directory is created 0700 (owner only).
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config file permissions to 0600.
// SECURITY: The config file may contain an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 != 0 {
		return os.Chmod(path, 0600)
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads configuration from disk, preferring TOML over JSON. Missing
// files are not an error: defaults (plus environment overrides) are
// returned instead.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	// JSON fallback for installs predating the TOML format.
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

// LoadPath reads configuration from an explicit file, selecting the
// decoder by extension.
func LoadPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	return finishLoad(cfg)
}

// finishLoad applies env overrides, migration, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Backend
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if cfg.Backend.Model == "" {
		cfg.Backend.Model = defaults.Backend.Model
	}
	if cfg.Backend.TimeoutSecs <= 0 {
		cfg.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if cfg.Backend.MaxRetries <= 0 {
		cfg.Backend.MaxRetries = defaults.Backend.MaxRetries
	}
	if cfg.Backend.Temperature == 0 {
		cfg.Backend.Temperature = defaults.Backend.Temperature
	}
	if cfg.Backend.MaxTokens <= 0 {
		cfg.Backend.MaxTokens = defaults.Backend.MaxTokens
	}

	// Storage
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaults.Storage.Driver
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# wokuchat configuration file")
	fmt.Fprintln(file, "# Generated by wokuchat - edit with care")
	fmt.Fprintln(file, "#")
	fmt.Fprintln(file, "# The API key may also be supplied via WOKUCHAT_API_KEY.")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must start with http:// or https://", c.Backend.BaseURL),
		})
	}

	if c.Backend.Temperature < 0 || c.Backend.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "backend.temperature",
			Message: fmt.Sprintf("temperature %.2f out of range, must be between 0 and 2", c.Backend.Temperature),
		})
	}

	if c.Backend.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "backend.max_tokens",
			Message: "max_tokens must be at least 1",
		})
	}

	if c.Backend.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.requests_per_minute",
			Message: "requests_per_minute cannot be negative",
		})
	}

	validDrivers := map[string]bool{"file": true, "sqlite": true}
	if !validDrivers[strings.ToLower(c.Storage.Driver)] {
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: file, sqlite", c.Storage.Driver),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// MIGRATION
// =============================================================================

// Migrate upgrades configuration written by older versions in place.
func (c *Config) Migrate() error {
	// Pre-1.0 installs stored a bare "/v1"-less base URL.
	if c.Backend.BaseURL != "" && !strings.HasSuffix(strings.TrimRight(c.Backend.BaseURL, "/"), "/v1") {
		if c.Backend.BaseURL == "https://api.openai.com" {
			c.Backend.BaseURL = backend.DefaultBaseURL
		}
	}

	// "json" was the only driver before sqlite support landed.
	if strings.ToLower(c.Storage.Driver) == "json" {
		c.Storage.Driver = "file"
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - WOKUCHAT_API_KEY: overrides backend.api_key
//   - WOKUCHAT_BASE_URL: overrides backend.base_url
//   - WOKUCHAT_MODEL: overrides backend.model
//   - WOKUCHAT_STREAMING: "1"/"true" or "0"/"false"
//   - WOKUCHAT_STORAGE_DRIVER: overrides storage.driver
//   - WOKUCHAT_STORAGE_PATH: overrides storage.path
//   - WOKUCHAT_ENCRYPT: "1"/"true" to enable at-rest encryption
//   - WOKUCHAT_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("WOKUCHAT_API_KEY"); key != "" {
		c.Backend.APIKey = key
	}
	if url := os.Getenv("WOKUCHAT_BASE_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if model := os.Getenv("WOKUCHAT_MODEL"); model != "" {
		c.Backend.Model = model
	}
	if streaming := os.Getenv("WOKUCHAT_STREAMING"); streaming != "" {
		c.Backend.Streaming = envBool(streaming)
	}
	if driver := os.Getenv("WOKUCHAT_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if path := os.Getenv("WOKUCHAT_STORAGE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if encrypt := os.Getenv("WOKUCHAT_ENCRYPT"); encrypt != "" {
		c.Storage.Encrypt = envBool(encrypt)
	}
	if theme := os.Getenv("WOKUCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// Passphrase returns the at-rest encryption passphrase. It is only ever
// read from the environment, never from the config file.
func Passphrase() string {
	return os.Getenv("WOKUCHAT_PASSPHRASE")
}

func envBool(s string) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return strings.ToLower(s) == "yes" || strings.ToLower(s) == "on"
}

// =============================================================================
// CLONE
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}
