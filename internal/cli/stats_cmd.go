// stats_cmd.go - Stats command implementation for mira.
//
// Command: stats
//
// Examples:
//   mira stats              Show usage totals for the configured user
//   mira stats --user ID    Show totals for another user
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
	"github.com/damazzy/mira-chatbot/internal/util"
)

// HandleStats implements the stats command.
func HandleStats(args []string) error {
	parsed := NewArgParser(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	userID := parsed.FlagOrDefault("user", cfg.API.UserID)
	if userID == "" {
		return fmt.Errorf("no user configured: set api.user_id or pass --user")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := api.NewClient(cfg.API.BaseURL)
	stats, err := client.Stats(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	fmt.Printf("user            %s\n", stats.Email)
	fmt.Printf("messages        %d\n", stats.TotalMessages)
	fmt.Printf("input tokens    %s\n", util.FormatTokens(stats.TotalInputTokens))
	fmt.Printf("output tokens   %s\n", util.FormatTokens(stats.TotalOutputTokens))
	fmt.Printf("total tokens    %s\n", util.FormatTokens(stats.TotalTokens))
	fmt.Printf("member since    %s\n", stats.CreatedAt.Format("Jan 2, 2006"))
	return nil
}
