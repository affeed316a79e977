// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a persisted thread of messages with shared model and
// generation parameters. The remote store owns it; the client holds a
// read-through cached copy keyed by ID.
type Conversation struct {
	ID     string  `json:"id"`
	UserID string  `json:"user_id"`
	Title  *string `json:"title,omitempty"`

	// Generation parameters
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// Counters
	MessageCount int `json:"message_count"`

	// Timestamps
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// DisplayTitle returns the conversation title, or a placeholder when the
// server has not assigned one yet.
func (c *Conversation) DisplayTitle() string {
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}
	return "New conversation"
}

// =============================================================================
// SUMMARY TYPE
// =============================================================================

// Summary is the list-item shape of a conversation, as returned by the
// sessions listing endpoint.
type Summary struct {
	ID           string     `json:"id"`
	Title        *string    `json:"title,omitempty"`
	Model        string     `json:"model"`
	MessageCount int        `json:"message_count"`
	TotalTokens  int        `json:"total_tokens"`
	LastMessage  *time.Time `json:"last_message_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DisplayTitle returns the summary title or a placeholder.
func (s *Summary) DisplayTitle() string {
	if s.Title != nil && *s.Title != "" {
		return *s.Title
	}
	return "New conversation"
}

// UpdatedAt returns the most recent activity timestamp: the last message
// time when present, else the creation time.
func (s *Summary) UpdatedAt() time.Time {
	if s.LastMessage != nil {
		return *s.LastMessage
	}
	return s.CreatedAt
}
