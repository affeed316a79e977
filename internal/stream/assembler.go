// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"strings"

	"github.com/damazzy/mira-chatbot/internal/model"
)

// Error variables for turn validation and lifecycle.
var (
	// ErrEmptyMessage is returned when a turn is submitted with no text
	// and no attachments. Rejected locally, before any request is issued.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTurnActive is returned when a turn is started while another is
	// still in flight. At most one turn may stream per conversation.
	ErrTurnActive = errors.New("a turn is already in flight")

	// ErrNoTurn is returned by Regenerate when there is no previous user
	// message to re-issue.
	ErrNoTurn = errors.New("no turn to regenerate")
)

// ValidateInput checks a turn submission locally. Text may be empty only
// when at least one attachment is present.
func ValidateInput(text string, attachments int) error {
	if strings.TrimSpace(text) == "" && attachments == 0 {
		return ErrEmptyMessage
	}
	return nil
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler builds the assistant message for one conversation's turns.
//
// It is a pure state machine: BeginTurn starts a turn, Apply folds each
// decoded event into the growing message in arrival order, and Fail/Cancel
// terminate it. It is not safe for concurrent use; the view controller
// calls it only from the UI event loop.
type Assembler struct {
	sessionID string

	user      *model.Message
	assistant *model.Message

	status       model.TurnStatus
	finishReason string
	err          error
}

// NewAssembler creates an idle assembler for one conversation.
func NewAssembler(sessionID string) *Assembler {
	return &Assembler{
		sessionID: sessionID,
		status:    model.StatusIdle,
	}
}

// SessionID returns the conversation this assembler belongs to.
func (a *Assembler) SessionID() string {
	return a.sessionID
}

// Status returns the current turn status.
func (a *Assembler) Status() model.TurnStatus {
	return a.status
}

// UserMessage returns the user message of the current turn, or nil.
func (a *Assembler) UserMessage() *model.Message {
	return a.user
}

// Assistant returns the assistant message assembled so far, or nil when no
// bytes have arrived for the current turn.
func (a *Assembler) Assistant() *model.Message {
	return a.assistant
}

// Err returns the error that terminated the last turn, if any.
func (a *Assembler) Err() error {
	return a.err
}

// FinishReason returns the finish reason of the last completed turn.
func (a *Assembler) FinishReason() string {
	return a.finishReason
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// BeginTurn starts a new turn for the given user message. The turn status
// becomes submitted; no assistant message exists until bytes arrive.
func (a *Assembler) BeginTurn(user *model.Message) error {
	if a.status.Busy() {
		return ErrTurnActive
	}
	a.user = user
	a.assistant = nil
	a.err = nil
	a.finishReason = ""
	a.status = model.StatusSubmitted
	return nil
}

// Apply folds one event into the turn. Events must be applied strictly in
// arrival order. Unknown events are a no-op.
func (a *Assembler) Apply(ev Event) {
	switch ev.Type {
	case EventTextDelta:
		a.ensureStreaming()
		a.assistant.AppendText(model.PartText, ev.Delta)
	case EventReasoningDelta:
		a.ensureStreaming()
		a.assistant.AppendText(model.PartReasoning, ev.Delta)
	case EventSourceURL:
		a.ensureStreaming()
		a.assistant.AppendSource(ev.URL)
	case EventFinish:
		a.ensureStreaming()
		a.assistant.SetUsage(ev.Usage)
		a.finishReason = ev.FinishReason
		a.status = model.StatusDone
	case EventError:
		a.err = errors.New(ev.Message)
		a.status = model.StatusErrored
	case EventUnknown:
		// Recoverable no-op
	}
}

// ensureStreaming opens the assistant message on the first arriving byte
// and flips the status from submitted to streaming.
func (a *Assembler) ensureStreaming() {
	if a.assistant == nil {
		a.assistant = model.NewAssistantMessage()
		a.assistant.SessionID = a.sessionID
	}
	a.status = model.StatusStreaming
}

// Fail terminates the turn with an error. A failure before any bytes
// arrived leaves no partial message; a mid-stream failure retains every
// part assembled so far, distinguishing "nothing happened" from "partial
// result delivered".
func (a *Assembler) Fail(err error) {
	if a.status == model.StatusSubmitted {
		a.assistant = nil
	}
	a.err = err
	a.status = model.StatusErrored
}

// Cancel ends the turn keeping whatever parts were assembled as the final
// content. No partial-part rollback.
func (a *Assembler) Cancel() {
	if !a.status.Busy() {
		return
	}
	a.status = model.StatusDone
}

// Regenerate discards the assembled assistant message and returns the user
// message to re-issue as a new turn. The new turn starts at submitted.
func (a *Assembler) Regenerate() (*model.Message, error) {
	if a.status.Busy() {
		return nil, ErrTurnActive
	}
	if a.user == nil {
		return nil, ErrNoTurn
	}
	user := a.user
	a.assistant = nil
	a.err = nil
	a.finishReason = ""
	a.status = model.StatusSubmitted
	return user, nil
}
