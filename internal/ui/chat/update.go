// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view.
//
// This file contains the Update loop: every mutation of view state
// happens here, synchronously, one message at a time.
package chat

import (
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/store"
	"github.com/jeranaias/loom-tui/internal/turn"
	"github.com/jeranaias/loom-tui/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshTranscript(false)
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionLoadedMsg:
		return m.handleSessionLoaded(msg)

	case StreamEventMsg:
		res := m.machine.HandleEvent(msg.Event, time.Now())
		if res.Dropped {
			m.dropped++
		}
		cmd := m.applyResult(res)
		return m, tea.Batch(cmd, listenCmd(m.transport))

	case StreamDroppedMsg:
		// Unknown or malformed payloads are counted and skipped; the turn
		// state never moves on garbage.
		m.dropped++
		log.Printf("chat: dropped inbound payload: %v", msg.Err)
		return m, listenCmd(m.transport)

	case StreamClosedMsg:
		res := m.machine.FailTransport(nil)
		return m, m.applyResult(res)

	case TransportFailedMsg:
		return m.handleTransportFailed(msg)

	case SendResultMsg:
		return m.handleSendResult(msg)

	case WatchdogTickMsg:
		res := m.machine.CheckTimeout(msg.Time)
		var cmd tea.Cmd
		if res.Notice != nil {
			cmd = m.applyResult(res)
		}
		return m, tea.Batch(cmd, watchdogTickCmd())

	case DraftTickMsg:
		if m.drafts != nil {
			m.drafts.FlushDue(msg.Time)
		}
		return m, draftTickCmd()

	case SaveStatusMsg:
		m.saveStatus = msg.Status
		m.degraded = msg.Degraded
		return m, nil

	case NoticeExpireMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case ConfigReloadedMsg:
		m.theme = styles.NewTheme(msg.Theme)
		if msg.RightTab == TabArtifact || msg.RightTab == TabHistory {
			m.rightTab = msg.RightTab
		}
		m.refreshTranscript(false)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if !m.machine.Idle() {
			m.refreshTranscript(false)
		}
		return m, cmd
	}

	return m.routeToComponents(msg)
}

// routeToComponents forwards unhandled messages to the composer.
func (m Model) routeToComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.captureDraft()
	return m, cmd
}

// =============================================================================
// SESSION LOAD
// =============================================================================

func (m Model) handleSessionLoaded(msg SessionLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.Err != nil {
		// With no session to attach turns to, the view stays in a
		// blocking error state until a retry succeeds; a transient
		// notice would leave completed replies with nowhere to land.
		if m.session != nil {
			return m, m.showNotice(turn.Notice{
				Level: turn.LevelError,
				Text:  "Could not reload the session: " + msg.Err.Error(),
			})
		}
		m.loadErr = msg.Err
		return m, nil
	}

	sess := msg.Session
	m.session = sess
	m.loadErr = nil

	m.artifacts.Load(sess.Artifacts, sess.ActiveArtifactID)
	sess.ActiveArtifactID = m.artifacts.ActiveID()

	if m.persister != nil {
		m.persister.SetSessionID(sess.ID)
	}

	// Reopen the view the way it was left.
	if sess.UIState.LeftWidth >= 20 && sess.UIState.LeftWidth <= 80 {
		m.leftWidth = sess.UIState.LeftWidth
	}
	if sess.UIState.RightTab == TabArtifact || sess.UIState.RightTab == TabHistory {
		m.rightTab = sess.UIState.RightTab
	}

	if m.drafts != nil {
		if text, ok := m.drafts.Restore(sess.ID); ok {
			m.input.SetValue(text)
			m.lastDraft = text
		}
	}

	m.layout()
	m.refreshTranscript(false)
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// SEND OUTCOME
// =============================================================================

func (m Model) handleSendResult(msg SendResultMsg) (tea.Model, tea.Cmd) {
	m.sendPending = false

	if !msg.Accepted {
		// The turn never started; put the text back so nothing is lost.
		if m.input.Value() == "" {
			m.input.SetValue(msg.Content)
			m.lastDraft = msg.Content
			if m.drafts != nil && m.draftScope() != "" {
				m.drafts.Write(m.draftScope(), msg.Content, time.Now())
			}
		}
		text := "Message not sent. Check the connection and try again."
		if msg.Err != nil {
			text = "Message not sent: " + msg.Err.Error()
		}
		return m, m.showNotice(turn.Notice{Level: turn.LevelError, Text: text})
	}

	_ = m.machine.BeginTurn(time.Now())

	if m.session != nil {
		m.session.AddUserMessage(msg.Content)
		title := m.session.Title
		m.persist(store.SessionPatch{
			Title:    &title,
			Messages: m.session.Messages,
		})
	}
	if m.drafts != nil && m.draftScope() != "" {
		m.drafts.Clear(m.draftScope())
	}

	m.refreshTranscript(false)
	m.viewport.GotoBottom()
	m.unseen = 0
	return m, nil
}

func (m Model) handleTransportFailed(msg TransportFailedMsg) (tea.Model, tea.Cmd) {
	log.Printf("chat: transport failure: %v", msg.Err)
	res := m.machine.FailTransport(msg.Err)
	if !res.Dropped && m.input.Value() == "" && m.lastSent != "" {
		// Offer the lost message back for a resend.
		m.input.SetValue(m.lastSent)
		m.lastDraft = m.lastSent
	}
	cmd := m.applyResult(res)
	return m, tea.Batch(cmd, listenCmd(m.transport))
}

// =============================================================================
// TURN RESULTS
// =============================================================================

// applyResult carries out what a machine transition asks for: committing
// the reply, surfacing a notice, and re-rendering the transcript.
func (m *Model) applyResult(res turn.Result) tea.Cmd {
	var cmds []tea.Cmd
	if res.Commit != nil {
		m.applyCommit(res.Commit)
	}
	if res.Notice != nil {
		cmds = append(cmds, m.showNotice(*res.Notice))
	}
	m.refreshTranscript(res.Commit != nil)
	return tea.Batch(cmds...)
}

// applyCommit lands a completed turn: the artifact patch first, then the
// transcript message, then one save carrying both.
func (m *Model) applyCommit(c *turn.Commit) {
	now := time.Now()
	var patch store.SessionPatch
	changed := false

	if c.Patch != nil {
		if _, err := m.artifacts.ApplyPatch(c.Patch, now); err == nil {
			active := m.artifacts.ActiveID()
			if m.session != nil {
				m.session.Artifacts = m.artifacts.Artifacts()
				m.session.ActiveArtifactID = active
			}
			patch.Artifacts = m.artifacts.Artifacts()
			patch.ActiveArtifactID = &active
			changed = true
		}
	}

	// Every completed turn commits exactly one assistant message, even
	// when the reply body is empty (a patch-only reply still answers).
	if m.session != nil {
		reply := model.NewAssistantMessage(c.Content)
		if c.MessageID != "" {
			reply.ID = c.MessageID
		}
		m.session.AddMessage(reply)
		title := m.session.Title
		patch.Title = &title
		patch.Messages = m.session.Messages
		changed = true
	}

	if changed {
		m.persist(patch)
	}
}

// showNotice replaces the current notice and schedules its expiry.
func (m *Model) showNotice(n turn.Notice) tea.Cmd {
	m.notice = &n
	m.noticeSeq++
	return noticeExpireCmd(m.noticeSeq)
}

// persist fires a save when persistence is wired.
func (m *Model) persist(patch store.SessionPatch) {
	if m.persister != nil {
		m.persister.Persist(patch)
	}
}

// persistUIState saves pane geometry and tab selection.
func (m *Model) persistUIState() {
	ui := model.UIState{RightTab: m.rightTab, LeftWidth: m.leftWidth}
	if m.session != nil {
		ui.Selection = m.session.UIState.Selection
		m.session.UIState = ui
	}
	m.persist(store.SessionPatch{UIState: &ui})
}

// =============================================================================
// TRANSCRIPT REFRESH
// =============================================================================

// refreshTranscript re-renders the viewport content. Autoscroll follows
// only when the user was already at the bottom; otherwise a committed
// message bumps the unseen counter.
func (m *Model) refreshTranscript(committed bool) {
	wasAtBottom := m.viewport.AtBottom()

	var msgs []*model.Message
	if m.session != nil {
		msgs = m.session.Messages
	}
	entries := BuildTranscript(msgs, m.machine)
	m.viewport.SetContent(renderTranscript(entries, m.theme, m.transcriptInnerWidth(), m.spin.View()))

	if wasAtBottom {
		m.viewport.GotoBottom()
	} else if committed {
		m.unseen++
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout recomputes pane geometry after a resize or a width change.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	m.leftPaneW = m.width * m.leftWidth / 100
	if m.leftPaneW < 20 {
		m.leftPaneW = 20
	}
	m.rightPaneW = m.width - m.leftPaneW
	if m.rightPaneW < 0 {
		m.rightPaneW = 0
	}

	// Header, notice, and status lines plus the bordered composer.
	inputH := m.input.Height() + 2
	m.bodyH = m.height - 1 - 1 - 1 - inputH
	if m.bodyH < 3 {
		m.bodyH = 3
	}

	if !m.ready {
		m.viewport = viewport.New(m.transcriptInnerWidth(), m.bodyH-2)
		m.ready = true
	} else {
		m.viewport.Width = m.transcriptInnerWidth()
		m.viewport.Height = m.bodyH - 2
	}

	m.input.SetWidth(m.width - 4)

	// Markdown rendering tracks the artifact pane width.
	if w := m.artifactInnerWidth(); w >= 10 {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(w),
		)
		if err == nil {
			m.renderer = renderer
		}
	}
}

// transcriptInnerWidth is the usable text width inside the left pane.
func (m *Model) transcriptInnerWidth() int {
	w := m.leftPaneW - 4
	if w < 10 {
		w = 10
	}
	return w
}

// artifactInnerWidth is the usable text width inside the right pane.
func (m *Model) artifactInnerWidth() int {
	return m.rightPaneW - 4
}
