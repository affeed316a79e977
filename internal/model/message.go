// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// PART TYPE
// =============================================================================

// PartKind identifies the type of a message part.
type PartKind string

const (
	PartText      PartKind = "text"
	PartReasoning PartKind = "reasoning"
	PartSource    PartKind = "source"
)

// Part is one typed fragment of a message's content.
// Content is set for text and reasoning parts; URL for source parts.
type Part struct {
	Kind    PartKind `json:"kind"`
	Content string   `json:"content,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Messages loaded from the remote store are immutable. An assistant message
// being streamed is transient: its Parts grow as increments arrive and it is
// only persisted by the backend, never by this client.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Content
	Parts []Part `json:"parts"`

	// Server-assigned ordering (monotonic within a conversation)
	SequenceNumber int `json:"sequence_number,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}

// NewUserMessage creates a user message with a single text part.
func NewUserMessage(text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		CreatedAt: time.Now(),
		Parts:     []Part{{Kind: PartText, Content: text}},
	}
}

// NewAssistantMessage creates an empty assistant message ready to receive
// stream increments.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendText appends delta to the message's open part of the given kind.
// A new part is opened when the message is empty or its last part has a
// different kind; increments of the same kind extend the existing part.
func (m *Message) AppendText(kind PartKind, delta string) {
	if n := len(m.Parts); n > 0 && m.Parts[n-1].Kind == kind {
		m.Parts[n-1].Content += delta
		return
	}
	m.Parts = append(m.Parts, Part{Kind: kind, Content: delta})
}

// AppendSource appends a cited source part. Sources never extend an open
// part; each source URL is its own part.
func (m *Message) AppendSource(url string) {
	m.Parts = append(m.Parts, Part{Kind: PartSource, URL: url})
}

// SetUsage records the token usage totals reported by the terminal frame.
func (m *Message) SetUsage(u Usage) {
	m.InputTokens = u.InputTokens
	m.OutputTokens = u.OutputTokens
	m.TotalTokens = u.TotalTokens
}

// Text returns the concatenation of the message's text parts.
func (m *Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText {
			b.WriteString(p.Content)
		}
	}
	return b.String()
}

// Reasoning returns the concatenation of the message's reasoning parts.
func (m *Message) Reasoning() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartReasoning {
			b.WriteString(p.Content)
		}
	}
	return b.String()
}

// Sources returns the URLs of the message's source parts, in order.
func (m *Message) Sources() []string {
	var urls []string
	for _, p := range m.Parts {
		if p.Kind == PartSource {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

// IsEmpty returns true if the message has no parts.
func (m *Message) IsEmpty() bool {
	return len(m.Parts) == 0
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	text := m.Text()
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// USAGE TYPE
// =============================================================================

// Usage holds token counters for one turn or message.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique client-side message ID.
func generateID() string {
	return "msg_" + uuid.New().String()
}
