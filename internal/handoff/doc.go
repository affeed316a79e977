// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package handoff carries the first message of a new conversation from
// the creation screen to the conversation view.
//
// Creating a conversation and streaming its first turn happen in two
// different views. The creation screen publishes the typed message and
// its settings under a key scoped to the new conversation; the
// conversation view consumes it exactly once when it mounts and starts
// the turn. Payloads live in the scoped store, so they never survive a
// program restart, and each payload is valid for five minutes from
// publication. Consuming always deletes, whether or not the payload is
// still valid.
package handoff
