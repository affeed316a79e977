// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the mira TUI.
// All colors use Lip Gloss AdaptiveColor so light and dark terminals
// both render sensibly.
package styles
