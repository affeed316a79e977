// config_cmd.go - Config command implementation for mira.
//
// Command: config
//
// Examples:
//   mira config show        Print the effective configuration
//   mira config path        Print the config file path
//   mira config init        Write a default config file
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/damazzy/mira-chatbot/internal/config"
)

// HandleConfig implements the config command.
func HandleConfig(args []string) error {
	parsed := NewArgParser(args)

	switch parsed.Subcommand() {
	case "", "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("api.base_url      %s\n", cfg.API.BaseURL)
		fmt.Printf("api.user_id       %s\n", cfg.API.UserID)
		fmt.Printf("api.timeout_secs  %d\n", cfg.API.TimeoutSecs)
		fmt.Printf("chat.temperature  %g\n", cfg.Chat.Temperature)
		fmt.Printf("chat.max_tokens   %d\n", cfg.Chat.MaxTokens)
		fmt.Printf("chat.web_search   %t\n", cfg.Chat.WebSearch)
		fmt.Printf("ui.theme          %s\n", cfg.UI.Theme)
		fmt.Printf("ui.show_tokens    %t\n", cfg.UI.ShowTokens)
		fmt.Printf("ui.show_reasoning %t\n", cfg.UI.ShowReasoning)
		return nil

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !parsed.BoolFlag("force") {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", parsed.Subcommand())
	}
}
