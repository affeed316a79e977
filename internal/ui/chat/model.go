// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/config"
	"github.com/damazzy/mira-chatbot/internal/handoff"
	"github.com/damazzy/mira-chatbot/internal/model"
	"github.com/damazzy/mira-chatbot/internal/modelsel"
	"github.com/damazzy/mira-chatbot/internal/querycache"
	"github.com/damazzy/mira-chatbot/internal/ui/styles"
)

// =============================================================================
// VIEW KIND
// =============================================================================

// viewKind selects which screen is showing.
type viewKind int

const (
	// viewHome is the conversation list plus the new-conversation composer.
	viewHome viewKind = iota
	// viewConversation is one conversation's transcript.
	viewConversation
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the whole chat application.
type Model struct {
	// Wiring
	cfg      *config.Config
	client   *api.Client
	cache    *querycache.Cache
	handoff  *handoff.Channel
	modelSel *modelsel.State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Screens
	view     viewKind
	activeID string

	// Controller arena, keyed by conversation ID. An entry exists
	// only while its conversation is open; navigating away tears it
	// down and aborts its stream.
	controllers map[string]*Controller

	// Home screen state
	sessions        []model.Summary
	sessionsErr     string
	sessionCursor   int
	loadingSessions bool

	// Model catalog
	catalog *api.ModelsList

	// UI components
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Markdown rendering for completed assistant messages
	mdRenderer *glamour.TermRenderer

	// Render pacing during streaming
	renderDirty bool
	ticking     bool

	// Key bindings
	keyMap KeyMap

	// Transient status line
	statusMsg string

	// renaming repurposes the input line for a title edit.
	renaming bool

	// Pending conversation creation: the composed first message waits
	// here until the backend returns the new conversation's ID, then
	// travels over the handoff channel.
	pendingMessage string
	creating       bool
}

// New creates the chat application model.
func New(cfg *config.Config, client *api.Client, cache *querycache.Cache, ch *handoff.Channel, sel *modelsel.State) *Model {
	input := textinput.New()
	input.Placeholder = "Send a message..."
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	return &Model{
		cfg:             cfg,
		client:          client,
		cache:           cache,
		handoff:         ch,
		modelSel:        sel,
		theme:           theme,
		view:            viewHome,
		controllers:     make(map[string]*Controller),
		loadingSessions: true,
		input:           input,
		viewport:        viewport.New(80, 20),
		spinner:         sp,
		keyMap:          DefaultKeyMap(),
	}
}

// Init kicks off the initial data loads.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		loadSessionsCmd(m.cache, m.client, m.cfg.API.UserID),
		loadModelsCmd(m.cache, m.client),
	)
}

// active returns the controller for the conversation on screen, or nil.
func (m *Model) active() *Controller {
	if m.activeID == "" {
		return nil
	}
	return m.controllers[m.activeID]
}

// currentModel resolves which model the next turn uses.
func (m *Model) currentModel() string {
	return m.modelSel.Current()
}

// cycleModel advances the selection through the catalog and persists
// the pick.
func (m *Model) cycleModel() {
	if m.catalog == nil || len(m.catalog.Models) == 0 {
		return
	}
	current := m.currentModel()
	next := m.catalog.Models[0].ID
	for i, info := range m.catalog.Models {
		if info.ID == current {
			next = m.catalog.Models[(i+1)%len(m.catalog.Models)].ID
			break
		}
	}
	if err := m.modelSel.Select(next); err != nil {
		m.statusMsg = "failed to save model selection"
		return
	}
	m.statusMsg = "model: " + next
}

// markdownRenderer returns the glamour renderer sized to the current
// width, creating it on first use.
func (m *Model) markdownRenderer() *glamour.TermRenderer {
	if m.mdRenderer == nil {
		wrap := m.width - 4
		if wrap < 20 {
			wrap = 20
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return nil
		}
		m.mdRenderer = r
	}
	return m.mdRenderer
}
