// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package localstore provides the client's durable and process-scoped
// key/value stores, backed by a single SQLite database file.
//
// The durable store survives restarts and holds the persisted cache
// snapshot and the user's model selection. The scoped store is wiped
// every time the database is opened, giving handoff payloads the
// lifetime of one program run.
package localstore
