// cli.go - Command dispatch for the mira binary.
//
// The default command (no arguments) launches the TUI; the rest are
// small maintenance commands that reuse the same wiring.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
)

// Version information, synced from main at startup.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies which top-level command was requested.
type Command int

const (
	// CmdTUI launches the interactive chat interface (the default).
	CmdTUI Command = iota
	// CmdVersion prints version information.
	CmdVersion
	// CmdConfig inspects or initializes the configuration file.
	CmdConfig
	// CmdModels lists the backend's model catalog.
	CmdModels
	// CmdHealth checks backend reachability.
	CmdHealth
	// CmdCache inspects or clears the local store.
	CmdCache
	// CmdStats shows usage totals for a user.
	CmdStats
	// CmdHelp prints usage.
	CmdHelp
)

// Parse maps os.Args onto a command and its remaining arguments.
func Parse() (Command, []string) {
	if len(os.Args) < 2 {
		return CmdTUI, nil
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "version", "--version", "-v":
		return CmdVersion, args
	case "config":
		return CmdConfig, args
	case "models":
		return CmdModels, args
	case "health":
		return CmdHealth, args
	case "cache":
		return CmdCache, args
	case "stats":
		return CmdStats, args
	case "help", "--help", "-h":
		return CmdHelp, args
	case "tui":
		return CmdTUI, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdHelp, nil
	}
}

// HandleVersion prints the build fingerprint.
func HandleVersion(_ []string) {
	fmt.Printf("mira %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// HandleHelp prints top-level usage.
func HandleHelp(_ []string) {
	fmt.Print(`mira - terminal chat client

Usage:
  mira                   Launch the chat interface
  mira models [--json]   List available models
  mira health            Check backend reachability
  mira config <sub>      show | init | path
  mira cache <sub>       path | clear
  mira stats [--user ID] Show usage totals
  mira version           Print version information
  mira help              Show this help
`)
}
