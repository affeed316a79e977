// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the styled components for the application.
type Theme struct {
	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusError lipgloss.Style
	Spinner     lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	Reasoning      lipgloss.Style
	SourceLink     lipgloss.Style
	Timestamp      lipgloss.Style
	TokenCount     lipgloss.Style
	ErrorBanner    lipgloss.Style

	// ==========================================================================
	// INPUT AND SIDEBAR STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	SidebarItem    lipgloss.Style
	SidebarActive  lipgloss.Style
	SidebarTitle   lipgloss.Style
	EmptyState     lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
}

// NewTheme creates a theme with the default palette.
func NewTheme() *Theme {
	return &Theme{
		Header: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Overlay).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 1),
		StatusError: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true),
		Spinner: lipgloss.NewStyle().
			Foreground(Amber),

		UserLabel: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		AssistantLabel: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true),
		MessageBody: lipgloss.NewStyle().
			Foreground(TextPrimary),
		Reasoning: lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true),
		SourceLink: lipgloss.NewStyle().
			Foreground(Emerald).
			Underline(true),
		Timestamp: lipgloss.NewStyle().
			Foreground(TextMuted),
		TokenCount: lipgloss.NewStyle().
			Foreground(TextMuted),
		ErrorBanner: lipgloss.NewStyle().
			Foreground(Rose).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Rose).
			Padding(0, 1),

		InputContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(0, 1),
		InputPrompt: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		SidebarItem: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 1),
		SidebarActive: lipgloss.NewStyle().
			Foreground(TextPrimary).
			Background(Overlay).
			Bold(true).
			Padding(0, 1),
		SidebarTitle: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true).
			Padding(0, 1),
		EmptyState: lipgloss.NewStyle().
			Foreground(TextMuted).
			Align(lipgloss.Center),
		ShortcutKey: lipgloss.NewStyle().
			Foreground(Cyan),
		ShortcutDesc: lipgloss.NewStyle().
			Foreground(TextMuted),
	}
}

// SetSize records the terminal dimensions for layout.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
