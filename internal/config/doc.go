// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for mira.
//
// Configuration is read from ~/.mira/config.toml with built-in
// defaults filling any gaps, then environment variable overrides
// (MIRA_*) are applied on top. A missing config file is not an error.
package config
