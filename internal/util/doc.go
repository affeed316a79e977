// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small display helpers shared across the UI:
// width-aware truncation and human-readable formatting of timestamps
// and token counts.
package util
