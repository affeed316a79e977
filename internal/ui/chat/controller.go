// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/damazzy/mira-chatbot/internal/model"
	"github.com/damazzy/mira-chatbot/internal/stream"
)

// Phase is the lifecycle state of one conversation view.
type Phase int

const (
	// PhaseLoading means history is being fetched.
	PhaseLoading Phase = iota
	// PhaseEmpty means history loaded and there are no messages yet.
	PhaseEmpty
	// PhaseActive means there is at least one message to show.
	PhaseActive
)

// Controller holds the state of one conversation. Controllers live in
// an arena keyed by conversation ID: one is created when a
// conversation is opened and torn down when the user navigates away,
// aborting any open stream.
type Controller struct {
	conv  *model.Conversation
	phase Phase

	// historyLoaded and metaLoaded track the two independent fetches
	// that settle the loading phase.
	historyLoaded bool
	metaLoaded    bool

	// messages is the committed history, in sequence order. The turn
	// in flight lives on the assembler until it completes.
	messages []*model.Message

	asm *stream.Assembler

	// gen counts turns. Stream-start messages carry the generation
	// they were issued for, so a start racing a local cancel cannot
	// attach to a later turn.
	gen int

	// events is non-nil while a stream is being pumped.
	events <-chan StreamItem
	cancel context.CancelFunc

	errText string
}

// newController creates a controller for a conversation that still
// needs its history loaded.
func newController(conversationID string) *Controller {
	return &Controller{
		phase: PhaseLoading,
		asm:   stream.NewAssembler(conversationID),
	}
}

// ID returns the conversation ID.
func (c *Controller) ID() string {
	return c.asm.SessionID()
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Status returns the turn status.
func (c *Controller) Status() model.TurnStatus {
	return c.asm.Status()
}

// Streaming reports whether a turn is in flight.
func (c *Controller) Streaming() bool {
	return c.asm.Status().Busy()
}

// setHistory installs loaded history and settles the phase.
func (c *Controller) setHistory(msgs []*model.Message) {
	c.messages = msgs
	c.historyLoaded = true
	c.settlePhase()
}

// setConversation installs loaded session metadata and settles the
// phase. conv may be nil when the metadata fetch failed; the fetch
// still counts as resolved.
func (c *Controller) setConversation(conv *model.Conversation) {
	if conv != nil {
		c.conv = conv
	}
	c.metaLoaded = true
	c.settlePhase()
}

// settlePhase leaves loading once there is something to show, or once
// both the history and session-metadata fetches have resolved.
func (c *Controller) settlePhase() {
	if len(c.messages) > 0 || c.asm.Status().Busy() {
		c.phase = PhaseActive
		return
	}
	if c.historyLoaded && c.metaLoaded {
		c.phase = PhaseEmpty
	}
}

// beginTurn validates and registers the user message with the
// assembler. The caller starts the stream on success.
func (c *Controller) beginTurn(text string) (*model.Message, error) {
	if err := stream.ValidateInput(text, 0); err != nil {
		return nil, err
	}
	user := model.NewUserMessage(text)
	user.SessionID = c.ID()
	if err := c.asm.BeginTurn(user); err != nil {
		return nil, err
	}
	c.gen++
	c.phase = PhaseActive
	c.errText = ""
	return user, nil
}

// commitTurn moves the finished turn's messages into history and resets
// the stream plumbing. Called when a stream closes for any reason.
func (c *Controller) commitTurn() {
	if user := c.asm.UserMessage(); user != nil {
		c.messages = append(c.messages, user)
	}
	if assistant := c.asm.Assistant(); assistant != nil && !assistant.IsEmpty() {
		c.messages = append(c.messages, assistant)
	}
	if err := c.asm.Err(); err != nil {
		c.errText = err.Error()
	}
	c.asm = stream.NewAssembler(c.ID())
	c.events = nil
	c.cancel = nil
}

// stopStream cancels the transport for an in-flight turn and commits
// it immediately, keeping whatever content already arrived as the
// turn's final content. Committing here means a submit right after a
// cancel starts from a clean assembler; the dead stream's eventual
// close message no longer matches this controller's channel and is
// ignored.
func (c *Controller) stopStream() {
	if c.cancel != nil {
		c.cancel()
	}
	c.asm.Cancel()
	if c.asm.UserMessage() != nil {
		c.commitTurn()
	}
}

// lastAssistantText returns the text of the most recent assistant
// message, preferring an in-flight one.
func (c *Controller) lastAssistantText() string {
	if a := c.asm.Assistant(); a != nil && !a.IsEmpty() {
		return a.Text()
	}
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == model.RoleAssistant {
			return c.messages[i].Text()
		}
	}
	return ""
}

// turnMessages builds the request payload: committed history plus the
// pending user message.
func (c *Controller) turnMessages() []*model.Message {
	out := make([]*model.Message, 0, len(c.messages)+1)
	out = append(out, c.messages...)
	if user := c.asm.UserMessage(); user != nil {
		out = append(out, user)
	}
	return out
}

// regenerate rewinds the last exchange and resubmits its user message.
// A trailing assistant reply is dropped; a trailing user message with
// no reply (a failed turn) is resubmitted as-is.
func (c *Controller) regenerate() (*model.Message, error) {
	if c.asm.Status().Busy() {
		return nil, stream.ErrTurnActive
	}
	n := len(c.messages)
	var user *model.Message
	switch {
	case n >= 1 && c.messages[n-1].Role == model.RoleUser:
		user = c.messages[n-1]
		c.messages = c.messages[:n-1]
	case n >= 2 && c.messages[n-1].Role == model.RoleAssistant && c.messages[n-2].Role == model.RoleUser:
		user = c.messages[n-2]
		c.messages = c.messages[:n-2]
	default:
		return nil, stream.ErrNoTurn
	}
	if err := c.asm.BeginTurn(user); err != nil {
		return nil, err
	}
	c.gen++
	c.errText = ""
	return user, nil
}
