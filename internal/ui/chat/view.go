// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view.
//
// This file renders the frame: transcript pane, artifact pane, composer,
// notice line, and status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/loom-tui/internal/artifact"
	"github.com/jeranaias/loom-tui/internal/turn"
	"github.com/jeranaias/loom-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the complete frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting loom..."
	}
	if m.loadErr != nil && m.session == nil {
		body := m.theme.NoticeError.Render("Could not load the session.") + "\n" +
			m.theme.StatusBar.Render(m.loadErr.Error()) + "\n\n" +
			m.theme.StatusBar.Render("Press r to retry · C-c to quit")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.theme.Thinking.Render(m.spin.View()+" Loading session..."))
	}

	sections := []string{
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderTranscriptPane(), m.renderRightPane()),
		m.renderNotice(),
		m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()),
		m.renderStatusBar(),
	}
	return strings.Join(sections, "\n")
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := "loom"
	if m.session != nil && m.session.Title != "" {
		title = m.session.Title
	}
	left := m.theme.HeaderTitle.Render("loom") + "  " + m.theme.Header.Render(title)
	return truncateLine(left, m.width)
}

// =============================================================================
// PANES
// =============================================================================

func (m Model) renderTranscriptPane() string {
	return m.theme.PanelBorder.
		Width(m.leftPaneW - 2).
		Height(m.bodyH - 2).
		Render(m.viewport.View())
}

func (m Model) renderRightPane() string {
	if m.rightPaneW < 12 {
		return ""
	}

	tabs := m.renderTabs()
	var content string
	if m.rightTab == TabHistory {
		content = m.renderHistory()
	} else {
		content = m.renderArtifact()
	}

	inner := tabs + "\n" + clipLines(content, m.bodyH-3)
	return m.theme.PanelBorder.
		Width(m.rightPaneW - 2).
		Height(m.bodyH - 2).
		Render(inner)
}

func (m Model) renderTabs() string {
	art := m.theme.TabInactive.Render("Artifact")
	hist := m.theme.TabInactive.Render("History")
	if m.rightTab == TabHistory {
		hist = m.theme.TabActive.Render("History")
	} else {
		art = m.theme.TabActive.Render("Artifact")
	}
	return art + "  " + hist
}

// renderArtifact shows the active artifact: title, version, and body.
// Markdown goes through glamour; other types render raw.
func (m Model) renderArtifact() string {
	active := m.artifacts.Active()
	if active == nil {
		return m.theme.Thinking.Render("No artifact yet.")
	}

	head := m.theme.ArtifactTitle.Render(active.Title) + " " +
		m.theme.ArtifactVersion.Render(fmt.Sprintf("v%d", active.Version))

	body := active.Content
	if active.Type == artifact.TypeMarkdown && m.renderer != nil {
		if rendered, err := m.renderer.Render(active.Content); err == nil {
			body = rendered
		}
	}
	return head + "\n" + strings.TrimRight(body, "\n")
}

// renderHistory lists revisions, latest first.
func (m Model) renderHistory() string {
	active := m.artifacts.Active()
	if active == nil || len(active.History) == 0 {
		return m.theme.Thinking.Render("No revisions yet.")
	}

	var b strings.Builder
	for i := len(active.History) - 1; i >= 0; i-- {
		e := active.History[i]
		line := fmt.Sprintf("%s %s  %s  %s",
			m.theme.ArtifactVersion.Render(fmt.Sprintf("v%d", e.Version)),
			m.theme.HistoryActor.Render(string(e.Actor)),
			e.Summary,
			m.theme.ArtifactVersion.Render(e.CreatedAt.Format("15:04")),
		)
		b.WriteString(truncateLine(line, m.rightPaneW-4))
		if i > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// =============================================================================
// NOTICE AND STATUS
// =============================================================================

// renderNotice keeps a fixed line so the layout never jumps.
func (m Model) renderNotice() string {
	if m.notice == nil {
		return ""
	}
	style := m.theme.NoticeInfo
	switch m.notice.Level {
	case turn.LevelError:
		style = m.theme.NoticeError
	case turn.LevelWarn:
		style = m.theme.NoticeWarn
	}
	return truncateLine(style.Render(m.notice.Text), m.width)
}

func (m Model) renderStatusBar() string {
	parts := []string{m.machine.State().String()}

	if m.degraded {
		parts = append(parts, m.theme.StatusDegraded.Render("changes not saved"))
	} else if m.saveStatus.String() == "saving" {
		parts = append(parts, m.theme.StatusSaving.Render("saving..."))
	} else {
		parts = append(parts, "saved")
	}

	if m.unseen > 0 {
		parts = append(parts, m.theme.UnseenBadge.Render(fmt.Sprintf("%d new ↓", m.unseen)))
	}

	// The hint line only fits comfortable terminals.
	if help := m.keys.HelpLine(); util.StringWidth(help) <= m.width/2 {
		parts = append(parts, help)
	}
	return truncateLine(m.theme.StatusBar.Render(strings.Join(parts, " · ")), m.width)
}

// =============================================================================
// HELPERS
// =============================================================================

// truncateLine clips a single line to the given display width.
func truncateLine(s string, width int) string {
	return util.TruncateWidth(s, width)
}

// clipLines keeps at most n lines of s.
func clipLines(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
