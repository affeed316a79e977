// mira - A terminal chat client for the Mira backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/cli"
	"github.com/damazzy/mira-chatbot/internal/config"
	"github.com/damazzy/mira-chatbot/internal/handoff"
	"github.com/damazzy/mira-chatbot/internal/localstore"
	"github.com/damazzy/mira-chatbot/internal/modelsel"
	"github.com/damazzy/mira-chatbot/internal/querycache"
	"github.com/damazzy/mira-chatbot/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// gcInterval is how often unaccessed cache entries are swept.
const gcInterval = time.Minute

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI()
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdModels:
		err = cli.HandleModels(args)
	case cli.CmdHealth:
		err = cli.HandleHealth(args)
	case cli.CmdCache:
		err = cli.HandleCache(args)
	case cli.CmdStats:
		err = cli.HandleStats(args)
	case cli.CmdHelp:
		cli.HandleHelp(args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI wires the full application and runs the Bubble Tea program.
func runTUI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	db, err := localstore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer db.Close()

	logger, closeLog := openLogger(dbPath)
	defer closeLog()

	cache := querycache.New(db.Durable())
	cache.Logf = logger.Printf
	if err := cache.Rehydrate(querycache.ModelsOptions); err != nil {
		// A bad snapshot must never block startup.
		logger.Printf("cache rehydrate failed: %v", err)
	}

	stopGC := make(chan struct{})
	go func() {
		ticker := time.NewTicker(gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cache.Sweep()
			case <-stopGC:
				return
			}
		}
	}()
	defer close(stopGC)

	app := chat.New(
		cfg,
		api.NewClientWithTimeout(cfg.API.BaseURL, cfg.API.Timeout()),
		cache,
		handoff.NewChannel(db.Scoped()),
		modelsel.NewState(db.Durable()),
	)

	program := tea.NewProgram(app, tea.WithAltScreen())
	_, runErr := program.Run()

	// Keep the model catalog warm for the next launch.
	if err := cache.Persist(); err != nil {
		logger.Printf("cache persist failed: %v", err)
	}
	return runErr
}

// openLogger writes diagnostics next to the database. Logging is best
// effort; a read-only data dir degrades to discarding.
func openLogger(dbPath string) (*log.Logger, func()) {
	path := filepath.Join(filepath.Dir(dbPath), "mira.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return log.New(io.Discard, "", 0), func() {}
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }
}
