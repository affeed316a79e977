// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the mira TUI.
//
// This file defines the tea.Cmd constructors that talk to the backend.
// Reads go through the query cache; mutations hit the gateway directly
// and invalidate the affected cache namespaces.
package chat

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/model"
	"github.com/damazzy/mira-chatbot/internal/querycache"
	"github.com/damazzy/mira-chatbot/internal/stream"
)

// sessionPageSize is how many conversations one list fetch returns.
const sessionPageSize = 50

// messagePageSize is how many messages one history fetch returns.
const messagePageSize = 200

// sessionsKey is the cache key for a user's conversation list.
func sessionsKey(userID string) querycache.Key {
	return querycache.Key{"sessions", userID}
}

// sessionKey is the cache key for one conversation's metadata.
func sessionKey(conversationID string) querycache.Key {
	return querycache.Key{"session", conversationID}
}

// messagesKey is the cache key for a conversation's history.
func messagesKey(conversationID string) querycache.Key {
	return querycache.Key{"messages", conversationID}
}

// modelsKey is the cache key for the model catalog.
func modelsKey() querycache.Key {
	return querycache.Key{"models"}
}

// =============================================================================
// READ COMMANDS
// =============================================================================

// loadSessionsCmd fetches the conversation list through the cache.
func loadSessionsCmd(cache *querycache.Cache, client *api.Client, userID string) tea.Cmd {
	return func() tea.Msg {
		sessions, err := querycache.FetchJSON(context.Background(), cache,
			sessionsKey(userID), querycache.SessionsOptions,
			func(ctx context.Context) ([]model.Summary, error) {
				return client.Sessions(ctx, userID, sessionPageSize, 0)
			})
		return SessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

// loadSessionCmd fetches one conversation's metadata through the
// cache. The header title and generation parameters come from here.
func loadSessionCmd(cache *querycache.Cache, client *api.Client, conversationID string) tea.Cmd {
	return func() tea.Msg {
		conv, err := querycache.FetchJSON(context.Background(), cache,
			sessionKey(conversationID), querycache.SessionOptions,
			func(ctx context.Context) (*model.Conversation, error) {
				return client.Session(ctx, conversationID)
			})
		return SessionLoadedMsg{ConversationID: conversationID, Conversation: conv, Err: err}
	}
}

// loadHistoryCmd fetches a conversation's message history through the
// cache and converts the flat records to part-based messages.
func loadHistoryCmd(cache *querycache.Cache, client *api.Client, conversationID string) tea.Cmd {
	return func() tea.Msg {
		records, err := querycache.FetchJSON(context.Background(), cache,
			messagesKey(conversationID), querycache.MessagesOptions,
			func(ctx context.Context) ([]api.MessageRecord, error) {
				return client.Messages(ctx, conversationID, messagePageSize, 0)
			})
		if err != nil {
			return HistoryLoadedMsg{ConversationID: conversationID, Err: err}
		}

		msgs := make([]*model.Message, 0, len(records))
		for _, r := range records {
			msgs = append(msgs, r.Message())
		}
		return HistoryLoadedMsg{ConversationID: conversationID, Messages: msgs}
	}
}

// loadModelsCmd fetches the model catalog through the cache. The
// models namespace is the persisted one, so this usually hits the
// rehydrated snapshot on startup.
func loadModelsCmd(cache *querycache.Cache, client *api.Client) tea.Cmd {
	return func() tea.Msg {
		catalog, err := querycache.FetchJSON(context.Background(), cache,
			modelsKey(), querycache.ModelsOptions,
			func(ctx context.Context) (*api.ModelsList, error) {
				return client.Models(ctx)
			})
		if err != nil {
			return ModelsLoadedMsg{Err: err}
		}
		// Keep the snapshot fresh across restarts.
		if perr := cache.Persist(); perr != nil && cache.Logf != nil {
			cache.Logf("failed to persist model catalog: %v", perr)
		}
		return ModelsLoadedMsg{Catalog: catalog}
	}
}

// =============================================================================
// MUTATION COMMANDS
// =============================================================================

// createSessionCmd creates a conversation and invalidates the list.
func createSessionCmd(cache *querycache.Cache, client *api.Client, req api.CreateSessionRequest) tea.Cmd {
	return func() tea.Msg {
		conv, err := client.CreateSession(context.Background(), req)
		if err == nil {
			cache.Invalidate(sessionsKey(req.UserID))
		}
		return SessionCreatedMsg{Conversation: conv, Err: err}
	}
}

// renameSessionCmd updates a conversation's title and invalidates the
// list and the conversation's metadata.
func renameSessionCmd(cache *querycache.Cache, client *api.Client, userID, conversationID, title string) tea.Cmd {
	return func() tea.Msg {
		conv, err := client.UpdateSession(context.Background(), conversationID, api.UpdateSessionRequest{
			Title: &title,
		})
		if err == nil {
			cache.Invalidate(sessionsKey(userID))
			cache.Invalidate(sessionKey(conversationID))
		}
		return SessionRenamedMsg{ConversationID: conversationID, Conversation: conv, Err: err}
	}
}

// deleteSessionCmd deletes a conversation and invalidates both the
// list and the conversation's history.
func deleteSessionCmd(cache *querycache.Cache, client *api.Client, userID, conversationID string) tea.Cmd {
	return func() tea.Msg {
		err := client.DeleteSession(context.Background(), conversationID)
		if err == nil {
			cache.Invalidate(sessionsKey(userID))
			cache.Invalidate(messagesKey(conversationID))
		}
		return SessionDeletedMsg{ConversationID: conversationID, Err: err}
	}
}

// =============================================================================
// STREAMING COMMANDS
// =============================================================================

// startTurnCmd opens the streaming turn and hands its pump channel to
// the update loop. ctx carries the deadline and cancel installed on
// the controller; gen ties the start message to the turn it serves.
func startTurnCmd(ctx context.Context, client *api.Client, conversationID string, gen int, req api.TurnRequest) tea.Cmd {
	return func() tea.Msg {
		s, err := stream.Open(ctx, client, req)
		if err != nil {
			return StreamStartedMsg{ConversationID: conversationID, Gen: gen, Err: err}
		}
		ch := make(chan StreamItem, 64)
		go pumpStream(s, ch)
		return StreamStartedMsg{ConversationID: conversationID, Gen: gen, Events: ch}
	}
}

// turnRequest builds the streaming request payload from a message
// history.
func turnRequest(msgs []*model.Message, modelID string, webSearch bool, temperature float64, maxTokens int) api.TurnRequest {
	wire := make([]api.TurnMessage, 0, len(msgs))
	for _, m := range msgs {
		wire = append(wire, api.TurnMessage{
			ID:    m.ID,
			Role:  m.Role.String(),
			Parts: m.Parts,
		})
	}
	return api.TurnRequest{
		Messages:    wire,
		Model:       modelID,
		WebSearch:   webSearch,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// =============================================================================
// UI COMMANDS
// =============================================================================

// copyCmd writes text to the system clipboard.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Err: clipboard.WriteAll(text)}
	}
}

// clearStatusCmd clears the transient status line after a short delay.
func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
