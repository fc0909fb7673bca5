// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("default driver = %q, want file", cfg.Storage.Driver)
	}
	if !cfg.Backend.Streaming {
		t.Error("streaming should default to on")
	}
}

func TestSaveAndLoadTOMLRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.Backend.Model = "gpt-4o"
	cfg.Backend.Temperature = 0.2
	cfg.Storage.Driver = "sqlite"
	cfg.UI.CompactMode = true

	path, err := ConfigPathTOML()
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	// SECURITY: config may hold an API key, must be 0600
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	loaded, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if loaded.Backend.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", loaded.Backend.Model)
	}
	if loaded.Backend.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", loaded.Backend.Temperature)
	}
	if loaded.Storage.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", loaded.Storage.Driver)
	}
	if !loaded.UI.CompactMode {
		t.Error("compact_mode not preserved")
	}
}

func TestLoadReturnsDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with no config file should not fail: %v", err)
	}
	if cfg.Backend.Model != Default().Backend.Model {
		t.Errorf("model = %q, want default", cfg.Backend.Model)
	}
}

func TestLoadFallsBackToJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := EnsureConfigDir(); err != nil {
		t.Fatal(err)
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		t.Fatal(err)
	}
	data := []byte(`{"backend":{"model":"legacy-model"}}`)
	if err := os.WriteFile(jsonPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Model != "legacy-model" {
		t.Errorf("model = %q, want legacy-model", cfg.Backend.Model)
	}
	// Unset fields come from defaults.
	if cfg.Backend.BaseURL == "" {
		t.Error("base_url should be filled from defaults")
	}
}

func TestFillDefaults(t *testing.T) {
	cfg := &Config{}
	if err := fillDefaults(cfg); err != nil {
		t.Fatal(err)
	}
	want := Default()
	if cfg.Backend.BaseURL != want.Backend.BaseURL {
		t.Errorf("base_url = %q, want %q", cfg.Backend.BaseURL, want.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != want.Backend.TimeoutSecs {
		t.Errorf("timeout_secs = %d, want %d", cfg.Backend.TimeoutSecs, want.Backend.TimeoutSecs)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("driver = %q, want file", cfg.Storage.Driver)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad base url", func(c *Config) { c.Backend.BaseURL = "ftp://x" }, "backend.base_url"},
		{"temperature too high", func(c *Config) { c.Backend.Temperature = 3.5 }, "backend.temperature"},
		{"zero max tokens", func(c *Config) { c.Backend.MaxTokens = 0 }, "backend.max_tokens"},
		{"negative rate limit", func(c *Config) { c.Backend.RequestsPerMinute = -1 }, "backend.requests_per_minute"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var errs ValidateErrors
			if !errors.As(err, &errs) {
				t.Fatalf("error type = %T, want ValidateErrors", err)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s in %v", tt.field, errs)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("WOKUCHAT_API_KEY", "sk-env-key")
	t.Setenv("WOKUCHAT_MODEL", "env-model")
	t.Setenv("WOKUCHAT_STREAMING", "false")
	t.Setenv("WOKUCHAT_STORAGE_DRIVER", "sqlite")
	t.Setenv("WOKUCHAT_ENCRYPT", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.APIKey != "sk-env-key" {
		t.Errorf("api key = %q", cfg.Backend.APIKey)
	}
	if cfg.Backend.Model != "env-model" {
		t.Errorf("model = %q", cfg.Backend.Model)
	}
	if cfg.Backend.Streaming {
		t.Error("streaming should be overridden off")
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if !cfg.Storage.Encrypt {
		t.Error("encrypt should be overridden on")
	}
}

func TestPassphraseFromEnvOnly(t *testing.T) {
	t.Setenv("WOKUCHAT_PASSPHRASE", "hunter2")
	if got := Passphrase(); got != "hunter2" {
		t.Errorf("Passphrase() = %q", got)
	}
}

func TestMigrateLegacyDriver(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "json"
	if err := cfg.Migrate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("driver = %q, want file", cfg.Storage.Driver)
	}
}

func TestLoadPathJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"ui":{"theme":"light"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q, want light", cfg.UI.Theme)
	}
}
