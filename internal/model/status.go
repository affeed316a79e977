// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TURN STATUS
// =============================================================================

// TurnStatus is the state of the current conversation turn. Exactly one
// status is active per conversation at a time; it is the authoritative
// signal for whether input is accepted and a loading indicator is shown.
type TurnStatus string

const (
	// StatusIdle means no turn is in flight.
	StatusIdle TurnStatus = "idle"

	// StatusSubmitted means the request was sent but no bytes have arrived.
	StatusSubmitted TurnStatus = "submitted"

	// StatusStreaming means increments are arriving.
	StatusStreaming TurnStatus = "streaming"

	// StatusDone means the turn completed (or was cancelled with its
	// partial content kept).
	StatusDone TurnStatus = "done"

	// StatusErrored means the turn failed. Parts assembled before a
	// mid-stream failure are retained.
	StatusErrored TurnStatus = "errored"
)

// String returns the string representation of the status.
func (s TurnStatus) String() string {
	return string(s)
}

// Busy returns true while a turn is in flight.
func (s TurnStatus) Busy() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// CanSubmit returns true when the conversation accepts a new turn.
func (s TurnStatus) CanSubmit() bool {
	return !s.Busy()
}
