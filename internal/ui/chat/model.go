// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view.
//
// This file defines the Model struct and its construction.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/loom-tui/internal/artifact"
	"github.com/jeranaias/loom-tui/internal/draft"
	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/protocol"
	"github.com/jeranaias/loom-tui/internal/store"
	"github.com/jeranaias/loom-tui/internal/transport"
	"github.com/jeranaias/loom-tui/internal/turn"
	"github.com/jeranaias/loom-tui/internal/ui/styles"
)

// Tab names for the right-hand panel.
const (
	TabArtifact = "artifact"
	TabHistory  = "history"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the view to its collaborators. Transport and Machine are
// required; the rest may be nil, in which case the corresponding feature
// (persistence, drafts, session loading) is simply off. Tests exploit
// that.
type Options struct {
	Theme     *styles.Theme
	Machine   *turn.Machine
	Artifacts *artifact.Synchronizer
	Transport transport.Transport
	Client    *store.Client
	Persister *store.Persister
	Drafts    *draft.Store

	// SendDefaults carries the model/provider/mode attached to every
	// send; the per-send artifact and session fields are filled in at
	// submit time.
	SendDefaults protocol.SendContext

	// LeftWidth is the transcript pane width in percent of the terminal.
	LeftWidth int
	// RightTab is the initially selected right panel tab.
	RightTab string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model for the chat view.
type Model struct {
	theme *styles.Theme
	keys  KeyMap

	session   *model.Session
	machine   *turn.Machine
	artifacts *artifact.Synchronizer
	transport transport.Transport
	client    *store.Client
	persister *store.Persister
	drafts    *draft.Store

	sendDefaults protocol.SendContext

	input    textarea.Model
	viewport viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int

	// leftWidth is the transcript pane share in percent.
	leftWidth int
	rightTab  string

	ready   bool
	loading bool
	loadErr error

	// unseen counts messages committed while the transcript was scrolled
	// away from the bottom.
	unseen int

	saveStatus store.SaveStatus
	degraded   bool

	notice    *turn.Notice
	noticeSeq int

	// lastSent remembers the most recent submitted text so a transport
	// failure can offer it back to the composer.
	lastSent string
	// lastDraft tracks the composer value to detect keystrokes.
	lastDraft string
	// sendPending blocks a second submit while a send is in flight.
	sendPending bool

	// Pane geometry computed by layout().
	leftPaneW  int
	rightPaneW int
	bodyH      int

	dropped  int
	quitting bool
}

// New creates the chat view.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}

	machine := opts.Machine
	if machine == nil {
		machine = turn.NewMachine()
	}
	sync := opts.Artifacts
	if sync == nil {
		sync = artifact.NewSynchronizer()
	}

	input := textarea.New()
	input.Placeholder = "Write a message..."
	input.Prompt = ""
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()
	// Enter submits; the Newline binding inserts line breaks instead.
	input.KeyMap.InsertNewline.SetEnabled(false)

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	leftWidth := opts.LeftWidth
	if leftWidth < 20 || leftWidth > 80 {
		leftWidth = 60
	}
	rightTab := opts.RightTab
	if rightTab != TabHistory {
		rightTab = TabArtifact
	}

	return Model{
		theme:        theme,
		keys:         DefaultKeyMap(),
		machine:      machine,
		artifacts:    sync,
		transport:    opts.Transport,
		client:       opts.Client,
		persister:    opts.Persister,
		drafts:       opts.Drafts,
		sendDefaults: opts.SendDefaults,
		input:        input,
		spin:         spin,
		leftWidth:    leftWidth,
		rightTab:     rightTab,
		loading:      opts.Client != nil,
		saveStatus:   store.StatusSaved,
	}
}

// Init starts the background loops: the session fetch, the reply stream
// listener, and the watchdog/draft ticks.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spin.Tick,
		textarea.Blink,
		watchdogTickCmd(),
		draftTickCmd(),
	}
	if m.client != nil {
		cmds = append(cmds, loadSessionCmd(m.client))
	}
	if m.transport != nil {
		cmds = append(cmds, listenCmd(m.transport))
	}
	return tea.Batch(cmds...)
}

// Session exposes the loaded session, nil before the initial fetch.
func (m Model) Session() *model.Session {
	return m.session
}

// draftScope returns the draft key for the current session.
func (m Model) draftScope() string {
	if m.session == nil {
		return ""
	}
	return m.session.ID
}
