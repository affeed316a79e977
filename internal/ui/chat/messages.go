// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the mira TUI.
//
// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Data loading: session list, history, and model catalog results
//   - Session lifecycle: creation and deletion results
//   - Streaming: turn start, event delivery, and stream closure
//   - UI: render ticks, clipboard, and transient status
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/model"
	"github.com/damazzy/mira-chatbot/internal/stream"
)

// =============================================================================
// DATA LOADING MESSAGES
// =============================================================================

// SessionsLoadedMsg delivers the user's conversation list.
type SessionsLoadedMsg struct {
	Sessions []model.Summary
	Err      error
}

// HistoryLoadedMsg delivers a conversation's message history.
type HistoryLoadedMsg struct {
	ConversationID string
	Messages       []*model.Message
	Err            error
}

// ModelsLoadedMsg delivers the model catalog.
type ModelsLoadedMsg struct {
	Catalog *api.ModelsList
	Err     error
}

// SessionLoadedMsg delivers a conversation's metadata.
type SessionLoadedMsg struct {
	ConversationID string
	Conversation   *model.Conversation
	Err            error
}

// =============================================================================
// SESSION LIFECYCLE MESSAGES
// =============================================================================

// SessionCreatedMsg confirms a conversation was created. The first
// message travels separately over the handoff channel.
type SessionCreatedMsg struct {
	Conversation *model.Conversation
	Err          error
}

// SessionDeletedMsg confirms a conversation was deleted.
type SessionDeletedMsg struct {
	ConversationID string
	Err            error
}

// SessionRenamedMsg confirms a conversation title update.
type SessionRenamedMsg struct {
	ConversationID string
	Conversation   *model.Conversation
	Err            error
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartedMsg signals that a turn's stream connected. Events
// arrive on the channel; the update loop pulls them one at a time.
// Gen identifies the turn the stream was opened for; a start arriving
// after that turn was cancelled is discarded.
type StreamStartedMsg struct {
	ConversationID string
	Gen            int
	Events         <-chan StreamItem
	Err            error
}

// StreamEventMsg delivers one parsed stream event. Events carries the
// channel it came from so events of an abandoned stream cannot touch
// a later turn.
type StreamEventMsg struct {
	ConversationID string
	Events         <-chan StreamItem
	Event          stream.Event
}

// StreamClosedMsg signals the event channel is exhausted. Err carries
// the transport error when the stream died before its finish event.
type StreamClosedMsg struct {
	ConversationID string
	Events         <-chan StreamItem
	Err            error
}

// StreamTickMsg paces viewport rebuilds during streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// CopiedMsg confirms a clipboard write.
type CopiedMsg struct {
	Err error
}

// ClearStatusMsg clears the transient status line.
type ClearStatusMsg struct{}
