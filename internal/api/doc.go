// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the typed client for the Mira backend: sessions, messages,
// models, users, and the streaming turn endpoint.
//
// The gateway holds no business logic. It translates method calls into HTTP
// requests and normalizes failures into typed errors; retries and caching
// belong to the callers (see internal/querycache).
package api
