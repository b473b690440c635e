// nyl TUI - A terminal client for the nyl personal assistant server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nyl-tui/internal/api"
	"github.com/jeranaias/nyl-tui/internal/cache"
	"github.com/jeranaias/nyl-tui/internal/config"
	"github.com/jeranaias/nyl-tui/internal/engine"
	"github.com/jeranaias/nyl-tui/internal/session"
	"github.com/jeranaias/nyl-tui/internal/ui/chat"
	"github.com/jeranaias/nyl-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		serverURL   = flag.String("server", "", "nyl server base URL (overrides config)")
		modelName   = flag.String("model", "", "model to chat with (overrides config)")
		scope       = flag.String("scope", "", "session scope: daily or project:<slug>")
		configPath  = flag.String("config", "", "path to a config file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("nyl-tui %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nyl: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *serverURL, *modelName, *scope)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "nyl: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	closeLog := setupLogging()
	defer closeLog()

	if err := run(cfg, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "nyl: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func applyFlags(cfg *config.Config, serverURL, modelName, scope string) {
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}
	if modelName != "" {
		cfg.Chat.DefaultModel = modelName
	}
	if scope != "" {
		cfg.Chat.Scope = scope
	}
}

// setupLogging routes the standard logger to ~/.nyl/nyl.log so engine and
// manager diagnostics never draw over the TUI.
func setupLogging() func() {
	dir, err := config.ConfigDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "nyl.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return func() { f.Close() }
}

func run(cfg *config.Config, configPath string) error {
	client := api.NewClient(cfg.Server.BaseURL).
		WithTimeout(time.Duration(cfg.Server.TimeoutSecs) * time.Second)

	var store session.Cache
	if cfg.Cache.Enabled {
		path, err := cfg.CachePath()
		if err == nil {
			if db, err := cache.Open(path); err == nil {
				defer db.Close()
				store = db
			} else {
				log.Printf("main: cache disabled: %v", err)
			}
		}
	}

	manager := session.NewManager(client, store, cfg.Chat.Scope)

	var rag *api.RagConfig
	if cfg.Rag.Enabled {
		rag = &api.RagConfig{
			Enabled:        true,
			Source:         cfg.Rag.Source,
			TopK:           cfg.Rag.TopK,
			EmbeddingModel: cfg.Rag.EmbeddingModel,
		}
	}

	var program *tea.Program
	eng := engine.New(client, manager, engine.Options{
		WindowSize:    cfg.Chat.WindowSize,
		FlushInterval: time.Duration(cfg.Chat.FlushIntervalMs) * time.Millisecond,
		Rag:           rag,
		Notify: func() {
			if program != nil {
				program.Send(chat.EngineUpdateMsg{})
			}
		},
	})
	if cfg.Chat.DefaultModel != "" {
		eng.SetModel(cfg.Chat.DefaultModel)
	}

	var forceDark *bool
	switch cfg.UI.Theme {
	case "dark":
		dark := true
		forceDark = &dark
	case "light":
		dark := false
		forceDark = &dark
	}
	theme := styles.NewTheme(forceDark)

	m := chat.New(cfg, eng, manager, client, theme)
	program = tea.NewProgram(m, tea.WithAltScreen())

	// Hot-reload the config file while the TUI runs.
	watchPath := configPath
	if watchPath == "" {
		if p, err := config.ConfigPathTOML(); err == nil {
			watchPath = p
		}
	}
	if watchPath != "" {
		if watcher, err := config.NewWatcher(watchPath, func(next *config.Config) {
			program.Send(chat.ConfigReloadedMsg{Config: next})
		}); err == nil {
			defer watcher.Close()
		}
	}

	_, err := program.Run()
	return err
}
