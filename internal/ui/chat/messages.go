// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view.
//
// This file defines the bubbletea messages and commands that connect the
// view to its background work: the reply stream, sends, session loading,
// and the periodic ticks driving the watchdog and draft flushes.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/protocol"
	"github.com/jeranaias/loom-tui/internal/store"
	"github.com/jeranaias/loom-tui/internal/transport"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// StreamEventMsg carries one decoded protocol event from the reply
// stream, in delivery order.
type StreamEventMsg struct {
	Event protocol.Event
}

// StreamDroppedMsg reports an inbound payload that failed to decode or
// carried an unknown event type. The payload is ignored; the turn state
// is untouched.
type StreamDroppedMsg struct {
	Err error
}

// StreamClosedMsg signals that the transport closed its event channel.
type StreamClosedMsg struct{}

// TransportFailedMsg reports a transport-level failure (disconnect, read
// error) on the reply stream.
type TransportFailedMsg struct {
	Err error
}

// SendResultMsg reports the outcome of a send attempt. Content echoes
// the submitted text so a rejected send can restore the draft.
type SendResultMsg struct {
	Content  string
	Accepted bool
	Err      error
}

// SessionLoadedMsg delivers the initial session fetch.
type SessionLoadedMsg struct {
	Session *model.Session
	Err     error
}

// SaveStatusMsg mirrors the persister's status into the status bar.
type SaveStatusMsg struct {
	Status   store.SaveStatus
	Degraded bool
}

// WatchdogTickMsg drives the stalled-reply watchdog.
type WatchdogTickMsg struct {
	Time time.Time
}

// DraftTickMsg drives debounced draft flushes.
type DraftTickMsg struct {
	Time time.Time
}

// NoticeExpireMsg clears a notice after its display window. Seq guards
// against clearing a newer notice.
type NoticeExpireMsg struct {
	Seq int
}

// ConfigReloadedMsg delivers a hot-reloaded UI configuration.
type ConfigReloadedMsg struct {
	Theme    string
	RightTab string
}

// =============================================================================
// COMMANDS
// =============================================================================

const (
	watchdogTickInterval = time.Second
	draftTickInterval    = 100 * time.Millisecond
	noticeDisplayFor     = 6 * time.Second
)

// listenCmd waits for the next inbound event. The command is re-issued
// after every delivery so the stream keeps flowing one message at a
// time through Update, preserving transport order.
func listenCmd(t transport.Transport) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-t.Events()
		if !ok {
			return StreamClosedMsg{}
		}
		if ev.Err != nil {
			return TransportFailedMsg{Err: ev.Err}
		}
		decoded, err := protocol.Decode(ev.Data)
		if err != nil {
			return StreamDroppedMsg{Err: err}
		}
		return StreamEventMsg{Event: decoded}
	}
}

// sendCmd submits a user message over the transport.
func sendCmd(t transport.Transport, text string, sctx protocol.SendContext) tea.Cmd {
	return func() tea.Msg {
		accepted, err := t.Send(context.Background(), text, sctx)
		return SendResultMsg{Content: text, Accepted: accepted, Err: err}
	}
}

// loadSessionCmd fetches the most recent session, creating one when the
// store is empty.
func loadSessionCmd(client *store.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sess, err := client.LoadOrCreate(ctx, "")
		return SessionLoadedMsg{Session: sess, Err: err}
	}
}

func watchdogTickCmd() tea.Cmd {
	return tea.Tick(watchdogTickInterval, func(t time.Time) tea.Msg {
		return WatchdogTickMsg{Time: t}
	})
}

func draftTickCmd() tea.Cmd {
	return tea.Tick(draftTickInterval, func(t time.Time) tea.Msg {
		return DraftTickMsg{Time: t}
	})
}

func noticeExpireCmd(seq int) tea.Cmd {
	return tea.Tick(noticeDisplayFor, func(time.Time) tea.Msg {
		return NoticeExpireMsg{Seq: seq}
	})
}
