// wokuchat - terminal chat client for OpenAI-compatible backends.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wokushop/wokuchat/internal/backend"
	"github.com/wokushop/wokuchat/internal/chat"
	"github.com/wokushop/wokuchat/internal/cli"
	"github.com/wokushop/wokuchat/internal/config"
	"github.com/wokushop/wokuchat/internal/storage"
	"github.com/wokushop/wokuchat/internal/store"
	uichat "github.com/wokushop/wokuchat/internal/ui/chat"
	"github.com/wokushop/wokuchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.wokuchat/config.toml)")
	plain := flag.Bool("plain", false, "force the plain REPL instead of the TUI")
	modelFlag := flag.String("model", "", "override the configured model")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wokuchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wokuchat: %v\n", err)
		os.Exit(1)
	}
	if *modelFlag != "" {
		cfg.Backend.Model = *modelFlag
	}

	persister, cleanup, err := buildPersister(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wokuchat: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	st := store.New(persister)

	// Start with a one-shot completer; the UI swaps in a streaming one
	// once its delta sink exists.
	wf := chat.NewWorkflow(st, backend.NewCompleter(buildClient(cfg), false, nil))

	if *plain || !cli.IsInteractive() || !cli.IsOutputTerminal() {
		runREPL(cfg, *configPath, st, wf)
		return
	}
	runTUI(cfg, *configPath, st, wf)
}

// loadConfig loads from an explicit path when given, otherwise from the
// default locations.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadPath(path)
	}
	return config.Load()
}

// buildClient constructs the backend client from config.
func buildClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(cfg.Backend.APIKey).
		WithBaseURL(cfg.Backend.BaseURL).
		WithModel(cfg.Backend.Model).
		WithSystemPrompt(cfg.Backend.SystemPrompt).
		WithTemperature(cfg.Backend.Temperature).
		WithMaxTokens(cfg.Backend.MaxTokens).
		WithMaxRetries(cfg.Backend.MaxRetries).
		WithRateLimit(cfg.Backend.RequestsPerMinute)
}

// buildCompleter constructs the configured completer, streaming deltas
// into sink when streaming is on.
func buildCompleter(cfg *config.Config, sink func(string)) backend.Completer {
	return backend.NewCompleter(buildClient(cfg), cfg.Backend.Streaming, sink)
}

// buildPersister selects the persistence adapter from config. The
// returned cleanup releases driver resources on exit.
func buildPersister(cfg *config.Config) (store.Persister, func(), error) {
	cipher, err := buildCipher(cfg)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			path, err = storage.DefaultSQLitePath()
			if err != nil {
				return nil, nil, err
			}
		}
		db, err := storage.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		db.Cipher = cipher
		return db, func() { db.Close() }, nil

	default:
		var fs *storage.FileStore
		if cfg.Storage.Path != "" {
			fs = storage.NewFileStoreWithPath(cfg.Storage.Path)
		} else {
			fs, err = storage.NewFileStore()
			if err != nil {
				return nil, nil, err
			}
		}
		fs.Cipher = cipher
		return fs, func() {}, nil
	}
}

func buildCipher(cfg *config.Config) (*storage.Cipher, error) {
	if !cfg.Storage.Encrypt {
		return nil, nil
	}
	passphrase := config.Passphrase()
	if passphrase == "" {
		return nil, fmt.Errorf("storage encryption is on but WOKUCHAT_PASSPHRASE is not set")
	}
	return storage.NewCipher(passphrase)
}

// watchConfig starts live reload of the config file. On change, the
// workflow gets a completer rebuilt from the new backend settings.
func watchConfig(path string, wf *chat.Workflow, sink func(string)) func() {
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return func() {}
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return func() {}
	}

	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
		wf.SetCompleter(buildCompleter(cfg, sink))
		log.Printf("configuration reloaded from %s", path)
	})
	if err != nil {
		log.Printf("config watch unavailable: %v", err)
		return func() {}
	}
	if err := watcher.Watch(); err != nil {
		log.Printf("config watch unavailable: %v", err)
		watcher.Close()
		return func() {}
	}
	return func() { watcher.Close() }
}

// =============================================================================
// MODES
// =============================================================================

func runTUI(cfg *config.Config, configPath string, st *store.Store, wf *chat.Workflow) {
	theme := styles.NewTheme(cfg.UI.Theme)
	m := uichat.New(theme, cfg, st, wf)

	st.SetOnChange(m.StateNotifier())
	wf.SetCompleter(buildCompleter(cfg, m.DeltaSink()))

	stopWatch := watchConfig(configPath, wf, m.DeltaSink())
	defer stopWatch()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "wokuchat: %v\n", err)
		os.Exit(1)
	}
}

func runREPL(cfg *config.Config, configPath string, st *store.Store, wf *chat.Workflow) {
	r := cli.New(cfg, st, wf)
	defer r.Close()

	wf.SetCompleter(buildCompleter(cfg, r.DeltaSink()))

	stopWatch := watchConfig(configPath, wf, r.DeltaSink())
	defer stopWatch()

	if err := r.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "wokuchat: %v\n", err)
		os.Exit(1)
	}
}
