// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/handoff"
	"github.com/damazzy/mira-chatbot/internal/stream"
)

// errStreamTruncated reports a stream that closed without a finish
// event and without a transport error.
var errStreamTruncated = errors.New("response stream ended unexpectedly")

// Update is the Bubble Tea update loop. Every state transition,
// including stream event application, happens here.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SessionsLoadedMsg:
		m.loadingSessions = false
		if msg.Err != nil {
			m.sessionsErr = msg.Err.Error()
			return m, nil
		}
		m.sessionsErr = ""
		m.sessions = msg.Sessions
		if m.sessionCursor >= len(m.sessions) {
			m.sessionCursor = 0
		}
		return m, nil

	case ModelsLoadedMsg:
		if msg.Err != nil {
			m.statusMsg = "model catalog unavailable"
			return m, clearStatusCmd()
		}
		m.catalog = msg.Catalog
		if msg.Catalog.DefaultModel != "" {
			m.modelSel.SeedDefault(msg.Catalog.DefaultModel)
		}
		return m, nil

	case HistoryLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case SessionLoadedMsg:
		return m.handleSessionLoaded(msg)

	case SessionCreatedMsg:
		return m.handleSessionCreated(msg)

	case SessionDeletedMsg:
		return m.handleSessionDeleted(msg)

	case SessionRenamedMsg:
		return m.handleSessionRenamed(msg)

	case StreamStartedMsg:
		return m.handleStreamStarted(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg)

	case StreamClosedMsg:
		return m.handleStreamClosed(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case CopiedMsg:
		if msg.Err != nil {
			m.statusMsg = "copy failed: " + msg.Err.Error()
		} else {
			m.statusMsg = "copied to clipboard"
		}
		return m, clearStatusCmd()

	case ClearStatusMsg:
		m.statusMsg = ""
		return m, nil
	}

	return m.updateComponents(msg)
}

// =============================================================================
// LAYOUT AND INPUT
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.viewport.Width = msg.Width
	m.viewport.Height = m.transcriptHeight()
	m.input.Width = msg.Width - 6

	// Word wrap depends on width.
	m.mdRenderer = nil
	if ctrl := m.active(); ctrl != nil {
		m.rebuildTranscript(ctrl)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		for _, ctrl := range m.controllers {
			ctrl.stopStream()
		}
		return m, tea.Quit
	}

	switch m.view {
	case viewHome:
		return m.handleHomeKey(msg)
	case viewConversation:
		return m.handleConversationKey(msg)
	}
	return m, nil
}

func (m *Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Up):
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.sessionCursor < len(m.sessions)-1 {
			m.sessionCursor++
		}
		return m, nil

	case key.Matches(msg, m.keyMap.CycleModel):
		m.cycleModel()
		return m, clearStatusCmd()

	case key.Matches(msg, m.keyMap.Delete):
		if len(m.sessions) == 0 {
			return m, nil
		}
		target := m.sessions[m.sessionCursor]
		return m, deleteSessionCmd(m.cache, m.client, m.cfg.API.UserID, target.ID)

	case key.Matches(msg, m.keyMap.Submit):
		text := m.input.Value()
		if stream.ValidateInput(text, 0) == nil {
			return m.submitComposer(text)
		}
		if len(m.sessions) > 0 {
			return m.openConversation(m.sessions[m.sessionCursor].ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConversationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.active()
	if ctrl == nil {
		m.view = viewHome
		return m, nil
	}

	// Rename mode repurposes the input line until confirmed or
	// abandoned.
	if m.renaming {
		switch {
		case key.Matches(msg, m.keyMap.Submit):
			title := strings.TrimSpace(m.input.Value())
			m.renaming = false
			m.statusMsg = ""
			m.input.Reset()
			if title == "" {
				return m, nil
			}
			return m, renameSessionCmd(m.cache, m.client, m.cfg.API.UserID, ctrl.ID(), title)

		case key.Matches(msg, m.keyMap.Cancel):
			m.renaming = false
			m.statusMsg = ""
			m.input.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		if ctrl.Streaming() {
			ctrl.stopStream()
			m.rebuildTranscript(ctrl)
			return m, nil
		}
		m.closeConversation()
		return m, loadSessionsCmd(m.cache, m.client, m.cfg.API.UserID)

	case key.Matches(msg, m.keyMap.NewChat):
		m.closeConversation()
		return m, nil

	case key.Matches(msg, m.keyMap.CycleModel):
		m.cycleModel()
		return m, clearStatusCmd()

	case key.Matches(msg, m.keyMap.Copy):
		if text := ctrl.lastAssistantText(); text != "" {
			return m, copyCmd(text)
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Rename):
		m.renaming = true
		m.statusMsg = "rename: Enter to save, Esc to cancel"
		if ctrl.conv != nil && ctrl.conv.Title != nil {
			m.input.SetValue(*ctrl.conv.Title)
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Regenerate):
		if _, err := ctrl.regenerate(); err != nil {
			m.statusMsg = err.Error()
			return m, clearStatusCmd()
		}
		m.rebuildTranscript(ctrl)
		return m, m.startTurn(ctrl, m.currentModel(), m.cfg.Chat.WebSearch)

	case key.Matches(msg, m.keyMap.Submit):
		text := m.input.Value()
		if _, err := ctrl.beginTurn(text); err != nil {
			if err != stream.ErrEmptyMessage {
				m.statusMsg = err.Error()
				return m, clearStatusCmd()
			}
			return m, nil
		}
		m.input.Reset()
		m.rebuildTranscript(ctrl)
		return m, m.startTurn(ctrl, m.currentModel(), m.cfg.Chat.WebSearch)

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// submitComposer creates a conversation for the composed first
// message. The message itself waits for the new ID, then crosses the
// handoff channel.
func (m *Model) submitComposer(text string) (tea.Model, tea.Cmd) {
	if m.creating {
		return m, nil
	}
	m.creating = true
	m.pendingMessage = text
	m.input.Reset()

	modelID := m.currentModel()
	req := api.CreateSessionRequest{
		UserID: m.cfg.API.UserID,
		Model:  &modelID,
	}
	if m.cfg.Chat.Temperature != 0 {
		t := m.cfg.Chat.Temperature
		req.Temperature = &t
	}
	if m.cfg.Chat.MaxTokens != 0 {
		n := m.cfg.Chat.MaxTokens
		req.MaxTokens = &n
	}
	return m, createSessionCmd(m.cache, m.client, req)
}

func (m *Model) handleSessionCreated(msg SessionCreatedMsg) (tea.Model, tea.Cmd) {
	m.creating = false
	pending := m.pendingMessage
	m.pendingMessage = ""

	if msg.Err != nil {
		m.statusMsg = "failed to create conversation: " + msg.Err.Error()
		return m, clearStatusCmd()
	}

	if pending != "" {
		err := m.handoff.Publish(msg.Conversation.ID, handoff.Payload{
			InitialMessage: pending,
			Model:          m.currentModel(),
			WebSearch:      m.cfg.Chat.WebSearch,
		})
		if err != nil {
			m.statusMsg = "handoff failed: " + err.Error()
			return m, clearStatusCmd()
		}
	}
	return m.openConversation(msg.Conversation.ID)
}

// closeConversation leaves the conversation view and tears down its
// controller. Any open stream is aborted; content already assembled is
// simply released.
func (m *Model) closeConversation() {
	if ctrl := m.active(); ctrl != nil {
		ctrl.stopStream()
		delete(m.controllers, m.activeID)
	}
	m.activeID = ""
	m.view = viewHome
	m.renaming = false
	m.input.Reset()
}

// openConversation switches to a conversation, creating its controller
// on mount. Mounting consumes any pending handoff payload exactly once
// and starts the first turn from it.
func (m *Model) openConversation(conversationID string) (tea.Model, tea.Cmd) {
	m.view = viewConversation
	m.activeID = conversationID

	ctrl, ok := m.controllers[conversationID]
	if !ok {
		ctrl = newController(conversationID)
		m.controllers[conversationID] = ctrl
	}

	var cmds []tea.Cmd
	if !ctrl.historyLoaded {
		cmds = append(cmds, loadHistoryCmd(m.cache, m.client, conversationID))
	}
	if !ctrl.metaLoaded {
		cmds = append(cmds, loadSessionCmd(m.cache, m.client, conversationID))
	}

	payload, found, err := m.handoff.Consume(conversationID)
	if err != nil {
		m.statusMsg = err.Error()
		cmds = append(cmds, clearStatusCmd())
	} else if found && !ctrl.Streaming() {
		if _, err := ctrl.beginTurn(payload.InitialMessage); err == nil {
			// The turn carries the payload's model and web-search
			// choice, not whatever is selected now.
			cmds = append(cmds, m.startTurn(ctrl, payload.Model, payload.WebSearch))
		}
	}

	m.rebuildTranscript(ctrl)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleHistoryLoaded(msg HistoryLoadedMsg) (tea.Model, tea.Cmd) {
	ctrl, ok := m.controllers[msg.ConversationID]
	if !ok {
		return m, nil
	}
	if msg.Err != nil {
		ctrl.phase = PhaseEmpty
		ctrl.historyLoaded = true
		ctrl.errText = msg.Err.Error()
	} else {
		ctrl.setHistory(msg.Messages)
	}
	if m.activeID == msg.ConversationID {
		m.rebuildTranscript(ctrl)
	}
	return m, nil
}

func (m *Model) handleSessionLoaded(msg SessionLoadedMsg) (tea.Model, tea.Cmd) {
	ctrl, ok := m.controllers[msg.ConversationID]
	if !ok {
		return m, nil
	}
	// A failed metadata fetch still resolves the phase; the header
	// falls back to its placeholder title.
	ctrl.setConversation(msg.Conversation)
	if m.activeID == msg.ConversationID {
		m.rebuildTranscript(ctrl)
	}
	return m, nil
}

func (m *Model) handleSessionRenamed(msg SessionRenamedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusMsg = "rename failed: " + msg.Err.Error()
		return m, clearStatusCmd()
	}
	if ctrl, ok := m.controllers[msg.ConversationID]; ok {
		ctrl.conv = msg.Conversation
	}
	m.statusMsg = "renamed"
	return m, clearStatusCmd()
}

func (m *Model) handleSessionDeleted(msg SessionDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusMsg = "delete failed: " + msg.Err.Error()
		return m, clearStatusCmd()
	}
	if ctrl, ok := m.controllers[msg.ConversationID]; ok {
		ctrl.stopStream()
		delete(m.controllers, msg.ConversationID)
	}
	if m.activeID == msg.ConversationID {
		m.activeID = ""
		m.view = viewHome
	}
	return m, loadSessionsCmd(m.cache, m.client, m.cfg.API.UserID)
}

// =============================================================================
// STREAMING
// =============================================================================

// startTurn opens the stream for the controller's pending turn. The
// configured API timeout bounds the whole turn, so a silently hung
// stream surfaces as a mid-stream failure instead of spinning forever.
func (m *Model) startTurn(ctrl *Controller, modelID string, webSearch bool) tea.Cmd {
	if modelID == "" {
		modelID = m.currentModel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.API.Timeout())
	ctrl.cancel = cancel

	req := turnRequest(
		ctrl.turnMessages(),
		modelID,
		webSearch,
		m.cfg.Chat.Temperature,
		m.cfg.Chat.MaxTokens,
	)
	return startTurnCmd(ctx, m.client, ctrl.ID(), ctrl.gen, req)
}

func (m *Model) handleStreamStarted(msg StreamStartedMsg) (tea.Model, tea.Cmd) {
	ctrl, ok := m.controllers[msg.ConversationID]
	if !ok {
		return m, nil
	}
	// A start racing a local cancel arrives for a turn that is no
	// longer in flight; its context is already cancelled, so just
	// drop it.
	if msg.Gen != ctrl.gen || !ctrl.asm.Status().Busy() {
		return m, nil
	}
	if msg.Err != nil {
		// Failed before any bytes: no partial message survives.
		ctrl.asm.Fail(msg.Err)
		ctrl.commitTurn()
		if m.activeID == msg.ConversationID {
			m.rebuildTranscript(ctrl)
		}
		return m, nil
	}

	ctrl.events = msg.Events
	cmds := []tea.Cmd{waitStreamCmd(msg.ConversationID, msg.Events)}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, streamTickCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleStreamEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	ctrl, ok := m.controllers[msg.ConversationID]
	if !ok || msg.Events != ctrl.events {
		// The stream this event came from was abandoned; a cancel
		// already committed its turn.
		return m, nil
	}
	// A mid-stream error event settles the status; later frames are
	// drained without mutating parts.
	if ctrl.asm.Status().Busy() {
		ctrl.asm.Apply(msg.Event)
		if m.activeID == msg.ConversationID {
			m.renderDirty = true
		}
	}
	return m, waitStreamCmd(msg.ConversationID, ctrl.events)
}

func (m *Model) handleStreamClosed(msg StreamClosedMsg) (tea.Model, tea.Cmd) {
	ctrl, ok := m.controllers[msg.ConversationID]
	if !ok || msg.Events != ctrl.events {
		// Close of an abandoned stream; its turn is already history.
		return m, nil
	}

	if ctrl.asm.Status().Busy() {
		if msg.Err != nil {
			ctrl.asm.Fail(msg.Err)
		} else {
			ctrl.asm.Fail(errStreamTruncated)
		}
	}
	ctrl.commitTurn()

	// The turn changed server state: history grew and the list's
	// ordering (and possibly the title) moved.
	m.cache.Invalidate(messagesKey(msg.ConversationID))
	m.cache.Invalidate(sessionsKey(m.cfg.API.UserID))

	if m.activeID == msg.ConversationID {
		m.rebuildTranscript(ctrl)
	}
	return m, loadSessionsCmd(m.cache, m.client, m.cfg.API.UserID)
}

func (m *Model) handleStreamTick() (tea.Model, tea.Cmd) {
	anyStreaming := false
	for _, ctrl := range m.controllers {
		if ctrl.Streaming() {
			anyStreaming = true
			break
		}
	}
	if !anyStreaming {
		m.ticking = false
		return m, nil
	}

	if m.renderDirty {
		if ctrl := m.active(); ctrl != nil {
			m.rebuildTranscript(ctrl)
		}
		m.renderDirty = false
	}
	return m, streamTickCmd()
}
