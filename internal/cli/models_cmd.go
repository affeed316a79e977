// models_cmd.go - Models command implementation for mira.
//
// Command: models
//
// Examples:
//   mira models             List available models
//   mira models --json      Raw catalog as JSON
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/config"
)

// HandleModels implements the models command.
func HandleModels(args []string) error {
	parsed := NewArgParser(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := api.NewClient(cfg.API.BaseURL)
	catalog, err := client.Models(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch model catalog: %w", err)
	}

	if parsed.BoolFlag("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}

	for _, info := range catalog.Models {
		marker := " "
		if info.ID == catalog.DefaultModel {
			marker = "*"
		}
		name := info.Name
		if name == "" {
			name = info.ID
		}
		fmt.Printf("%s %-28s %s\n", marker, info.ID, name)
	}
	return nil
}
