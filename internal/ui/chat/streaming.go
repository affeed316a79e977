// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the mira TUI.
//
// This file implements the stream pump and render pacing. Events are
// read off the wire in a goroutine and forwarded into the Bubble Tea
// loop one message at a time, so the assembler only ever runs on the
// update loop. Viewport rebuilds are paced at a capped frame rate to
// keep fast streams from burning CPU on redundant renders.
package chat

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/damazzy/mira-chatbot/internal/stream"
)

// renderInterval caps transcript rebuilds at roughly 30fps during
// streaming.
const renderInterval = 33 * time.Millisecond

// StreamItem is one element of the pump channel: a parsed event, or
// the terminal transport error when the stream died early.
type StreamItem struct {
	Event stream.Event
	Err   error
}

// pumpStream reads events until the stream ends and forwards them on
// ch. A clean end ([DONE]) just closes the channel; a transport error
// is sent as the final item. Runs in its own goroutine.
func pumpStream(s *stream.Stream, ch chan<- StreamItem) {
	defer close(ch)
	defer s.Close()

	for {
		ev, err := s.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			ch <- StreamItem{Err: err}
			return
		}
		ch <- StreamItem{Event: ev}
	}
}

// waitStreamCmd pulls the next item off the pump channel. The channel
// rides along on every message so handlers can tell a live stream from
// one the user already walked away from.
func waitStreamCmd(conversationID string, ch <-chan StreamItem) tea.Cmd {
	return func() tea.Msg {
		item, ok := <-ch
		if !ok {
			return StreamClosedMsg{ConversationID: conversationID, Events: ch}
		}
		if item.Err != nil {
			// The pump closes after a terminal error; report it as the
			// stream's end.
			return StreamClosedMsg{ConversationID: conversationID, Events: ch, Err: item.Err}
		}
		return StreamEventMsg{ConversationID: conversationID, Events: ch, Event: item.Event}
	}
}

// streamTickCmd schedules the next paced render during streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
