// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view.
//
// This file builds the rendered transcript: the committed messages plus
// at most one synthetic entry for the in-flight reply.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/turn"
	"github.com/jeranaias/loom-tui/internal/ui/styles"
)

// =============================================================================
// DISPLAY MODEL
// =============================================================================

// DisplayMessage is one transcript entry ready for rendering. Committed
// entries come from the session; the synthetic entry mirrors the turn
// machine and is replaced wholesale on every event.
type DisplayMessage struct {
	Role    model.Role
	Content string

	// Streaming marks the partial reply accumulated so far.
	Streaming bool
	// Pending marks the placeholder shown before the first chunk.
	Pending bool
}

// BuildTranscript merges the committed transcript with the turn state.
// The invariant: at most one synthetic entry, always last, and never
// present while idle - a committed reply and its streaming preview can
// never both be visible.
func BuildTranscript(msgs []*model.Message, machine *turn.Machine) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(msgs)+1)
	for _, msg := range msgs {
		out = append(out, DisplayMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	switch machine.State() {
	case turn.StateAwaitingReply:
		out = append(out, DisplayMessage{
			Role:    model.RoleAssistant,
			Pending: true,
		})
	case turn.StateStreaming:
		out = append(out, DisplayMessage{
			Role:      model.RoleAssistant,
			Content:   machine.Buffer(),
			Streaming: true,
		})
	}
	return out
}

// =============================================================================
// RENDERING
// =============================================================================

// renderTranscript lays the transcript out as viewport content. Width is
// the usable inner width of the transcript pane.
func renderTranscript(entries []DisplayMessage, theme *styles.Theme, width int, spinnerFrame string) string {
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(renderEntry(entry, theme, width, spinnerFrame))
	}
	return b.String()
}

func renderEntry(entry DisplayMessage, theme *styles.Theme, width int, spinnerFrame string) string {
	label := roleLabel(entry.Role, theme)

	if entry.Pending {
		return label + "\n" + theme.Thinking.Render(spinnerFrame+" thinking...")
	}

	body := lipgloss.NewStyle().Width(width).Render(entry.Content)
	switch {
	case entry.Streaming:
		body = theme.StreamingBody.Render(body)
		if entry.Content == "" {
			body = theme.Thinking.Render(spinnerFrame + " ...")
		}
	default:
		body = theme.MessageBody.Render(body)
	}
	return label + "\n" + body
}

func roleLabel(role model.Role, theme *styles.Theme) string {
	name := role.DisplayName()
	switch role {
	case model.RoleUser:
		return theme.UserLabel.Render(name)
	case model.RoleAssistant:
		return theme.AssistantLabel.Render(name)
	default:
		return theme.SystemLabel.Render(name)
	}
}
