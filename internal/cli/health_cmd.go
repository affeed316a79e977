// health_cmd.go - Health command implementation for mira.
//
// Command: health
//
// Examples:
//   mira health             Check backend reachability
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/config"
)

// HandleHealth implements the health command.
func HandleHealth(_ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := api.NewClient(cfg.API.BaseURL)
	health, err := client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("backend unreachable at %s: %w", cfg.API.BaseURL, err)
	}

	fmt.Printf("status    %s\n", health.Status)
	fmt.Printf("database  %t\n", health.Database)
	if health.Version != nil {
		fmt.Printf("version   %s\n", *health.Version)
	}
	return nil
}
