// loom - a terminal client for a document-producing chat agent.
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
	"golang.org/x/term"

	"github.com/jeranaias/loom-tui/internal/agent"
	"github.com/jeranaias/loom-tui/internal/config"
	"github.com/jeranaias/loom-tui/internal/draft"
	"github.com/jeranaias/loom-tui/internal/protocol"
	"github.com/jeranaias/loom-tui/internal/store"
	"github.com/jeranaias/loom-tui/internal/turn"
	"github.com/jeranaias/loom-tui/internal/ui/chat"
	"github.com/jeranaias/loom-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "config file path (default ~/.loom/config.toml)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("loom %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "loom needs an interactive terminal")
		os.Exit(1)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Debug logging goes to a file; stdout belongs to the TUI frame.
	if f := openDebugLog(); f != nil {
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}
	log.Printf("loom %s starting, server=%s stream=%s",
		Version, cfg.Server.BaseURL, cfg.StreamBaseURL())

	// Session store and save pipeline.
	client := store.NewClientWithConfig(&store.ClientConfig{
		BaseURL: cfg.Server.BaseURL,
		Timeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
	})
	persister := store.NewPersister(client, "")

	// Draft recovery. A broken database degrades to no drafts rather
	// than blocking startup.
	var drafts *draft.Store
	dbPath := cfg.Drafts.DatabasePath
	if dbPath == "" {
		dbPath, _ = draft.DefaultDBPath()
	}
	if dbPath != "" {
		if kv, err := draft.NewSQLiteKV(dbPath); err == nil {
			drafts = draft.NewStoreWithConfig(kv, draft.DefaultNamespace, cfg.Drafts.Debounce())
		}
	}
	if drafts != nil {
		defer drafts.Close()
	}

	// Agent reply stream.
	transport := agent.NewClientWithConfig(&agent.ClientConfig{
		BaseURL: cfg.StreamBaseURL(),
	})
	defer transport.Close()

	view := chat.New(chat.Options{
		Theme:     styles.NewTheme(cfg.UI.Theme),
		Machine:   turn.NewMachineWithTimeout(cfg.Stream.ReplyTimeout()),
		Transport: transport,
		Client:    client,
		Persister: persister,
		Drafts:    drafts,
		SendDefaults: protocol.SendContext{
			Provider: cfg.DefaultProvider,
			Model:    cfg.DefaultModel,
			WorkMode: cfg.WorkMode,
		},
		LeftWidth: cfg.UI.LeftWidth,
		RightTab:  cfg.UI.RightTab,
	})

	program := tea.NewProgram(view, tea.WithAltScreen())

	// Save status reaches the status bar as a message, never a shared
	// variable.
	persister.SetStatusCallback(func(status store.SaveStatus, degraded bool) {
		program.Send(chat.SaveStatusMsg{Status: status, Degraded: degraded})
	})

	// Theme and tab changes apply live when the config file is edited.
	if path, err := config.ConfigPath(); err == nil {
		if watcher, err := config.NewWatcher(path, func(next *config.Config) {
			program.Send(chat.ConfigReloadedMsg{
				Theme:    next.UI.Theme,
				RightTab: next.UI.RightTab,
			})
		}); err == nil {
			defer watcher.Close()
		}
	}

	_, err = program.Run()
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// openDebugLog opens ~/.loom/debug.log, returning nil when unavailable.
func openDebugLog() *os.File {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(homeDir, ".loom")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "debug.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return f
}
