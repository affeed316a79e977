// cache_cmd.go - Cache command implementation for mira.
//
// Command: cache
//
// Examples:
//   mira cache path         Print the local database path
//   mira cache clear        Drop the persisted query cache snapshot
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/damazzy/mira-chatbot/internal/config"
	"github.com/damazzy/mira-chatbot/internal/localstore"
	"github.com/damazzy/mira-chatbot/internal/querycache"
)

// HandleCache implements the cache command.
func HandleCache(args []string) error {
	parsed := NewArgParser(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}

	switch parsed.Subcommand() {
	case "", "path":
		fmt.Println(dbPath)
		return nil

	case "clear":
		db, err := localstore.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Durable().Delete(querycache.PersistKey); err != nil {
			return fmt.Errorf("failed to clear cache snapshot: %w", err)
		}
		fmt.Println("cache snapshot cleared")
		return nil

	default:
		return fmt.Errorf("unknown cache subcommand: %s", parsed.Subcommand())
	}
}
