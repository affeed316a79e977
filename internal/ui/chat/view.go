// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/damazzy/mira-chatbot/internal/model"
	"github.com/damazzy/mira-chatbot/internal/util"
)

// transcriptHeight is the viewport height: total minus header, input,
// and status rows.
func (m *Model) transcriptHeight() int {
	h := m.height - 7
	if h < 3 {
		h = 3
	}
	return h
}

// View renders the current screen.
func (m *Model) View() string {
	switch m.view {
	case viewConversation:
		return m.viewConversationScreen()
	default:
		return m.viewHomeScreen()
	}
}

// =============================================================================
// HOME SCREEN
// =============================================================================

func (m *Model) viewHomeScreen() string {
	var b strings.Builder

	title := m.theme.HeaderTitle.Render("mira")
	modelLine := m.theme.StatusBar.Render("model: " + m.currentModel())
	b.WriteString(m.theme.Header.Width(max(m.width, 20)).Render(title + "  " + modelLine))
	b.WriteString("\n\n")

	switch {
	case m.loadingSessions:
		b.WriteString(m.theme.StatusBar.Render(m.spinner.View() + " loading conversations..."))
		b.WriteString("\n")
	case m.sessionsErr != "":
		b.WriteString(m.theme.ErrorBanner.Render("could not load conversations: " + m.sessionsErr))
		b.WriteString("\n")
	case len(m.sessions) == 0:
		b.WriteString(m.theme.EmptyState.Width(max(m.width, 20)).Render("No conversations yet. Type a message to start one."))
		b.WriteString("\n")
	default:
		b.WriteString(m.theme.SidebarTitle.Render("Conversations"))
		b.WriteString("\n")
		b.WriteString(m.renderSessionList())
	}

	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(max(m.width-2, 20)).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine("Enter send/open  C-n new  C-x delete  C-o model  C-q quit"))
	return b.String()
}

func (m *Model) renderSessionList() string {
	now := time.Now()
	var b strings.Builder
	for i, s := range m.sessions {
		title := util.TruncateWidth(s.DisplayTitle(), max(m.width-24, 10))
		line := title + "  " + m.theme.Timestamp.Render(util.FormatRelativeTime(s.UpdatedAt(), now))
		if i == m.sessionCursor {
			b.WriteString(m.theme.SidebarActive.Render("> " + line))
		} else {
			b.WriteString(m.theme.SidebarItem.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// CONVERSATION SCREEN
// =============================================================================

func (m *Model) viewConversationScreen() string {
	ctrl := m.active()
	if ctrl == nil {
		return m.viewHomeScreen()
	}

	var b strings.Builder

	title := "conversation"
	if ctrl.conv != nil {
		title = ctrl.conv.DisplayTitle()
	}
	header := m.theme.HeaderTitle.Render(util.TruncateWidth(title, max(m.width-20, 10))) +
		"  " + m.theme.StatusBar.Render(m.currentModel())
	b.WriteString(m.theme.Header.Width(max(m.width, 20)).Render(header))
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if ctrl.Streaming() {
		label := "thinking..."
		if ctrl.Status() == model.StatusStreaming {
			label = "streaming..."
		}
		b.WriteString(m.theme.Spinner.Render(m.spinner.View() + " " + label))
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Width(max(m.width-2, 20)).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine("Enter send  Esc cancel/back  C-r regenerate  C-t rename  C-y copy  C-q quit"))
	return b.String()
}

func (m *Model) renderStatusLine(shortcuts string) string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Render(m.statusMsg)
	}
	return m.theme.ShortcutDesc.Render(shortcuts)
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// rebuildTranscript re-renders the active conversation into the
// viewport and follows the tail.
func (m *Model) rebuildTranscript(ctrl *Controller) {
	m.viewport.Width = max(m.width, 20)
	m.viewport.Height = m.transcriptHeight()
	m.viewport.SetContent(m.renderTranscript(ctrl))
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript(ctrl *Controller) string {
	if ctrl.phase == PhaseLoading {
		return m.theme.StatusBar.Render("loading history...")
	}

	var sections []string
	for _, msg := range ctrl.messages {
		sections = append(sections, m.renderMessage(msg, false))
	}
	if user := ctrl.asm.UserMessage(); user != nil {
		sections = append(sections, m.renderMessage(user, false))
	}
	if assistant := ctrl.asm.Assistant(); assistant != nil {
		sections = append(sections, m.renderMessage(assistant, ctrl.Streaming()))
	}
	if ctrl.errText != "" {
		sections = append(sections, m.theme.ErrorBanner.Render(ctrl.errText))
	}

	if len(sections) == 0 {
		return m.theme.EmptyState.Width(max(m.width, 20)).Render("No messages yet. Say something.")
	}
	return strings.Join(sections, "\n\n")
}

// renderMessage renders one message. Completed assistant messages get
// markdown treatment; in-flight ones render as plain text so partial
// markdown never flickers through the renderer.
func (m *Model) renderMessage(msg *model.Message, streaming bool) string {
	var b strings.Builder

	switch msg.Role {
	case model.RoleUser:
		b.WriteString(m.theme.UserLabel.Render(msg.Role.DisplayName()))
	default:
		b.WriteString(m.theme.AssistantLabel.Render(msg.Role.DisplayName()))
	}
	b.WriteString("\n")

	if reasoning := msg.Reasoning(); reasoning != "" && (m.cfg.UI.ShowReasoning || streaming) {
		b.WriteString(m.theme.Reasoning.Render(reasoning))
		b.WriteString("\n")
	}

	text := msg.Text()
	if msg.Role == model.RoleAssistant && !streaming {
		if r := m.markdownRenderer(); r != nil {
			if rendered, err := r.Render(text); err == nil {
				text = strings.TrimRight(rendered, "\n")
			}
		}
		b.WriteString(text)
	} else {
		b.WriteString(m.theme.MessageBody.Render(text))
	}

	for _, src := range msg.Sources() {
		b.WriteString("\n")
		b.WriteString(m.theme.SourceLink.Render(src))
	}

	if m.cfg.UI.ShowTokens && msg.TotalTokens > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.TokenCount.Render(util.FormatTokens(msg.TotalTokens) + " tokens"))
	}
	return b.String()
}
