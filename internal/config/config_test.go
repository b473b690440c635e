// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromPathTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
base_url = "http://assistant.local:8000"
timeout_secs = 60

[chat]
default_model = "qwen2.5:7b"
scope = "project:house-move"
window_size = 8
flush_interval_ms = 16

[rag]
enabled = true
source = "qdrant"
top_k = 3
embedding_model = "nomic-embed-text"

[ui]
theme = "light"
markdown = false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "http://assistant.local:8000" || cfg.Server.TimeoutSecs != 60 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Chat.DefaultModel != "qwen2.5:7b" || cfg.Chat.Scope != "project:house-move" {
		t.Errorf("chat = %+v", cfg.Chat)
	}
	if cfg.Chat.WindowSize != 8 || cfg.Chat.FlushIntervalMs != 16 {
		t.Errorf("chat tuning = %+v", cfg.Chat)
	}
	if !cfg.Rag.Enabled || cfg.Rag.Source != "qdrant" || cfg.Rag.TopK != 3 {
		t.Errorf("rag = %+v", cfg.Rag)
	}
	if cfg.UI.Theme != "light" || cfg.UI.Markdown {
		t.Errorf("ui = %+v", cfg.UI)
	}
	// Unset sections keep their defaults.
	if !cfg.Cache.Enabled {
		t.Error("cache default lost")
	}
}

func TestLoadFromPathJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"chat": {"default_model": "llama3.2:3b"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Chat.DefaultModel != "llama3.2:3b" {
		t.Errorf("model = %q", cfg.Chat.DefaultModel)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("base url default lost: %q", cfg.Server.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.Server.BaseURL = "localhost:8000" }},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSecs = 0 }},
		{"bad scope", func(c *Config) { c.Chat.Scope = "Project:House" }},
		{"scope without slug", func(c *Config) { c.Chat.Scope = "project:" }},
		{"zero window", func(c *Config) { c.Chat.WindowSize = 0 }},
		{"zero flush interval", func(c *Config) { c.Chat.FlushIntervalMs = 0 }},
		{"rag without top_k", func(c *Config) { c.Rag.Enabled = true; c.Rag.TopK = 0 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("validation passed, want error")
			}
		})
	}
}

func TestValidScope(t *testing.T) {
	valid := []string{"", "daily", "project:house-move", "project:a1"}
	for _, s := range valid {
		if !ValidScope(s) {
			t.Errorf("ValidScope(%q) = false, want true", s)
		}
	}
	invalid := []string{"weekly", "project:", "project:House", "daily:extra", "project:a_b"}
	for _, s := range invalid {
		if ValidScope(s) {
			t.Errorf("ValidScope(%q) = true, want false", s)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NYL_SERVER_URL", "http://10.0.0.5:8000")
	t.Setenv("NYL_MODEL", "mistral:7b")
	t.Setenv("NYL_SCOPE", "daily")
	t.Setenv("NYL_RAG", "true")
	t.Setenv("NYL_WINDOW_SIZE", "6")
	t.Setenv("NYL_CACHE", "0")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Chat.DefaultModel != "mistral:7b" {
		t.Errorf("model = %q", cfg.Chat.DefaultModel)
	}
	if cfg.Chat.Scope != "daily" {
		t.Errorf("scope = %q", cfg.Chat.Scope)
	}
	if !cfg.Rag.Enabled {
		t.Error("rag not enabled from env")
	}
	if cfg.Chat.WindowSize != 6 {
		t.Errorf("window = %d", cfg.Chat.WindowSize)
	}
	if cfg.Cache.Enabled {
		t.Error("cache not disabled from env")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[chat]\ndefault_model = \"first\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[chat]\ndefault_model = \"second\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Chat.DefaultModel != "second" {
			t.Errorf("reloaded model = %q", cfg.Chat.DefaultModel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(""), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	// A config that fails validation must not reach the callback.
	if err := os.WriteFile(path, []byte("[chat]\nwindow_size = -1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		t.Errorf("invalid config delivered: %+v", cfg)
	case <-time.After(time.Second):
	}
}
