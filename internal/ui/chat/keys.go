// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view.
//
// This file defines keyboard bindings for the chat interface.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
// Each binding supports multiple keys and includes help text.
type KeyMap struct {
	Submit     key.Binding
	Newline    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	JumpBottom key.Binding
	ToggleTab  key.Binding
	PaneGrow   key.Binding
	PaneShrink key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "shift+enter", "ctrl+j"),
			key.WithHelp("M-Enter", "newline"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel reply"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		JumpBottom: key.NewBinding(
			key.WithKeys("ctrl+e", "end"),
			key.WithHelp("End", "jump to latest"),
		),
		ToggleTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "artifact/history"),
		),
		PaneGrow: key.NewBinding(
			key.WithKeys("ctrl+right"),
			key.WithHelp("C-right", "widen chat"),
		),
		PaneShrink: key.NewBinding(
			key.WithKeys("ctrl+left"),
			key.WithHelp("C-left", "narrow chat"),
		),
	}
}

// HelpLine returns the hint text shown in the status bar.
func (k KeyMap) HelpLine() string {
	return "Enter send · M-Enter newline · Esc cancel · Tab panel · C-c quit"
}
