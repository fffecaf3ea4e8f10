// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view.
//
// This file handles keyboard input: submitting, cancelling, scrolling,
// and keeping the draft store in step with the composer.
package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/turn"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loadErr != nil && m.session == nil {
		return m.handleLoadErrorKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.drafts != nil {
			m.drafts.Flush()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		return m.cancelTurn()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		m.captureDraft()
		return m, nil

	case key.Matches(msg, m.keys.JumpBottom):
		m.viewport.GotoBottom()
		m.unseen = 0
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		if m.viewport.AtBottom() {
			m.unseen = 0
		}
		return m, cmd

	case key.Matches(msg, m.keys.ToggleTab):
		if m.rightTab == TabArtifact {
			m.rightTab = TabHistory
		} else {
			m.rightTab = TabArtifact
		}
		m.persistUIState()
		return m, nil

	case key.Matches(msg, m.keys.PaneGrow):
		return m.resizePane(5)

	case key.Matches(msg, m.keys.PaneShrink):
		return m.resizePane(-5)
	}

	// The composer is locked while a reply is outstanding.
	if !m.machine.Idle() || m.sendPending {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.captureDraft()
	return m, cmd
}

// handleLoadErrorKey drives the failed-load state: the session never
// loaded, so everything except retry and quit is inert.
func (m Model) handleLoadErrorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case msg.String() == "r", key.Matches(msg, m.keys.Submit):
		m.loadErr = nil
		if m.client == nil {
			// No store wired: adopt a local session so the
			// conversation can proceed without persistence.
			return m.handleSessionLoaded(SessionLoadedMsg{Session: model.NewSession()})
		}
		m.loading = true
		return m, loadSessionCmd(m.client)
	}
	return m, nil
}

// resizePane shifts the transcript/artifact split and persists it.
func (m Model) resizePane(delta int) (tea.Model, tea.Cmd) {
	width := m.leftWidth + delta
	if width < 20 {
		width = 20
	}
	if width > 80 {
		width = 80
	}
	if width == m.leftWidth {
		return m, nil
	}
	m.leftWidth = width
	m.layout()
	m.refreshTranscript(false)
	m.persistUIState()
	return m, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// submit sends the composer text. The composer clears immediately; a
// rejected send restores it. The turn only starts once the transport
// confirms acceptance.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.transport == nil {
		return m, nil
	}
	// A turn needs a session to land in; until one loads, nothing goes
	// out and the composer text stays put.
	if m.session == nil {
		return m, nil
	}
	if m.sendPending || !m.machine.Idle() {
		return m, m.showNotice(turn.Notice{
			Level: turn.LevelInfo,
			Text:  "Wait for the current reply to finish, or press Esc to cancel it.",
		})
	}

	m.sendPending = true
	m.lastSent = text
	m.input.Reset()
	m.lastDraft = ""

	sctx := m.sendDefaults
	sctx.ActiveArtifactID = m.artifacts.ActiveID()
	if m.session != nil {
		sctx.WorkSessionID = m.session.ID
		sctx.Selection = m.session.UIState.Selection
	}
	return m, sendCmd(m.transport, text, sctx)
}

// =============================================================================
// CANCEL
// =============================================================================

// cancelTurn abandons the outstanding reply on Esc. The machine goes
// idle immediately; the server's own cancelled event, arriving later,
// lands in Idle and is dropped.
func (m Model) cancelTurn() (tea.Model, tea.Cmd) {
	if m.machine.Idle() {
		return m, nil
	}
	res := m.machine.Cancel(time.Now())
	if m.transport != nil {
		m.transport.Stop()
	}
	return m, m.applyResult(res)
}

// =============================================================================
// DRAFTS
// =============================================================================

// captureDraft records a composer change into the draft store. The store
// debounces; this just stamps the keystroke.
func (m *Model) captureDraft() {
	v := m.input.Value()
	if v == m.lastDraft {
		return
	}
	m.lastDraft = v
	if m.drafts == nil || m.draftScope() == "" {
		return
	}
	m.drafts.Write(m.draftScope(), v, time.Now())
}
