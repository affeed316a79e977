// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream consumes the backend's incremental turn response and
// assembles it into typed message parts.
//
// The package splits the work in two: Stream reads SSE frames off the wire
// and decodes them into Events, and Assembler is the pure state machine
// that applies Events to the in-progress assistant message and tracks the
// turn status. The view controller pumps events from the former into the
// latter on the UI event loop, so all state transitions stay serialized.
package stream
