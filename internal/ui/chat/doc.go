// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the mira TUI.
//
// The package is built around two layers:
//
//   - Controller holds the state of one conversation: its loaded
//     history, the turn assembler, and the live stream if a turn is in
//     flight. Controllers are kept in an arena keyed by conversation
//     ID; one is created on open and torn down on navigation away,
//     aborting any open stream.
//   - Model is the Bubble Tea model that owns the arena, the home
//     screen (conversation list plus composer), and the conversation
//     screen. All state transitions happen on the Bubble Tea update
//     loop; stream events are forwarded into it as messages.
//
// Creating a conversation publishes the typed first message on the
// handoff channel and switches to the conversation view, which
// consumes it exactly once and starts the first turn.
package chat
