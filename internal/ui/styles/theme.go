// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for loom TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER / LAYOUT
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	PanelBorder lipgloss.Style
	PanelTitle  lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	StreamingBody  lipgloss.Style
	Thinking       lipgloss.Style

	// ==========================================================================
	// INPUT AREA
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// ==========================================================================
	// STATUS / NOTICES
	// ==========================================================================

	StatusBar      lipgloss.Style
	StatusSaving   lipgloss.Style
	StatusDegraded lipgloss.Style
	NoticeInfo     lipgloss.Style
	NoticeWarn     lipgloss.Style
	NoticeError    lipgloss.Style
	UnseenBadge    lipgloss.Style

	// ==========================================================================
	// ARTIFACT PANEL
	// ==========================================================================

	ArtifactTitle   lipgloss.Style
	ArtifactVersion lipgloss.Style
	HistoryEntry    lipgloss.Style
	HistoryActor    lipgloss.Style
}

// NewTheme creates a theme for the current terminal. mode is "auto",
// "dark", or "light".
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	isDark := true
	switch mode {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}
	t.build()
	return t
}

// build assembles the styles for the detected capability.
func (t *Theme) build() {
	var (
		accent  = lipgloss.Color("69")  // blue-violet
		user    = lipgloss.Color("39")  // blue
		agent   = lipgloss.Color("42")  // green
		subtle  = lipgloss.Color("241") // grey
		warn    = lipgloss.Color("214") // orange
		danger  = lipgloss.Color("203") // red
		badgeBg = lipgloss.Color("63")
	)
	if !t.IsDark {
		subtle = lipgloss.Color("245")
	}

	t.Header = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.PanelBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(subtle).
		Padding(0, 1)
	t.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.TabActive = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(accent)
	t.TabInactive = lipgloss.NewStyle().Foreground(subtle)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(user)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(agent)
	t.SystemLabel = lipgloss.NewStyle().Bold(true).Foreground(subtle)
	t.MessageBody = lipgloss.NewStyle()
	t.StreamingBody = lipgloss.NewStyle().Faint(false)
	t.Thinking = lipgloss.NewStyle().Faint(true).Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(accent)

	t.StatusBar = lipgloss.NewStyle().Foreground(subtle)
	t.StatusSaving = lipgloss.NewStyle().Foreground(warn)
	t.StatusDegraded = lipgloss.NewStyle().Bold(true).Foreground(danger)
	t.NoticeInfo = lipgloss.NewStyle().Foreground(subtle)
	t.NoticeWarn = lipgloss.NewStyle().Bold(true).Foreground(warn)
	t.NoticeError = lipgloss.NewStyle().Bold(true).Foreground(danger)
	t.UnseenBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("231")).
		Background(badgeBg).
		Padding(0, 1)

	t.ArtifactTitle = lipgloss.NewStyle().Bold(true)
	t.ArtifactVersion = lipgloss.NewStyle().Foreground(subtle)
	t.HistoryEntry = lipgloss.NewStyle()
	t.HistoryActor = lipgloss.NewStyle().Bold(true).Foreground(accent)
}
