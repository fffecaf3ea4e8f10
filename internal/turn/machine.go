// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn implements the protocol state machine for one
// user-message-to-assistant-reply cycle.
package turn

import (
	"errors"
	"strings"
	"time"

	"github.com/jeranaias/loom-tui/internal/protocol"
)

// DefaultReplyTimeout is the watchdog deadline for a stalled reply. It is
// the only source of a spontaneous state transition; everything else is
// event-driven.
const DefaultReplyTimeout = 120 * time.Second

// =============================================================================
// STATES
// =============================================================================

// State is the turn-taking state of the session.
type State int

const (
	// StateIdle means no turn is outstanding; the composer is free.
	StateIdle State = iota

	// StateAwaitingReply means a send was accepted and no reply content
	// has arrived yet.
	StateAwaitingReply

	// StateStreaming means reply chunks are arriving.
	StateStreaming
)

// String returns the state name for status display and logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// =============================================================================
// RESULTS
// =============================================================================

// Level classifies a user-visible notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Notice is a non-blocking, user-visible notification produced by a
// transition. Notices never leave the machine outside Idle.
type Notice struct {
	Level Level
	Text  string
}

// Commit is the finalized assistant reply of a completed turn. The
// attached patch, when present, must be applied to the artifact set
// before the message is committed to the transcript.
type Commit struct {
	MessageID string
	Content   string
	Patch     *protocol.ArtifactPatch
}

// Result describes what the caller must do after feeding the machine.
type Result struct {
	// Commit is non-nil exactly once per completed turn. Cancelled and
	// failed turns never produce one.
	Commit *Commit

	// Notice is a user-visible notification, when the transition
	// warrants one.
	Notice *Notice

	// Dropped is true when the event was invalid in the current state
	// and was ignored (duplicate terminal events, stray deltas).
	Dropped bool
}

// ErrTurnInProgress rejects a send while a turn is outstanding.
var ErrTurnInProgress = errors.New("a reply is already in progress")

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the turn state machine. It is not safe for concurrent use;
// all transitions happen synchronously inside the Update loop.
type Machine struct {
	state     State
	buffer    strings.Builder
	messageID string

	// deadline is the watchdog expiry; zero while idle.
	deadline time.Time
	timeout  time.Duration

	dropped int
}

// NewMachine creates an idle machine with the default reply timeout.
func NewMachine() *Machine {
	return &Machine{timeout: DefaultReplyTimeout}
}

// NewMachineWithTimeout creates a machine with a custom reply timeout.
func NewMachineWithTimeout(timeout time.Duration) *Machine {
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &Machine{timeout: timeout}
}

// State returns the current turn state.
func (m *Machine) State() State {
	return m.state
}

// Idle reports whether the composer may start a new turn.
func (m *Machine) Idle() bool {
	return m.state == StateIdle
}

// Buffer returns the accumulated streaming text for the in-flight reply.
func (m *Machine) Buffer() string {
	return m.buffer.String()
}

// MessageID returns the id of the in-flight reply ("" while idle).
func (m *Machine) MessageID() string {
	return m.messageID
}

// Deadline returns the watchdog expiry, zero while idle.
func (m *Machine) Deadline() time.Time {
	return m.deadline
}

// DroppedEvents returns how many events were ignored as invalid for the
// state they arrived in.
func (m *Machine) DroppedEvents() int {
	return m.dropped
}

// reset returns the machine to Idle, discarding the buffer and watchdog.
func (m *Machine) reset() {
	m.state = StateIdle
	m.buffer.Reset()
	m.messageID = ""
	m.deadline = time.Time{}
}

// =============================================================================
// TURN INITIATION
// =============================================================================

// BeginTurn moves Idle to AwaitingReply and arms the watchdog. Callers
// must invoke it only after the transport reported the send as accepted;
// a rejected send leaves the machine Idle and the draft intact.
func (m *Machine) BeginTurn(now time.Time) error {
	if m.state != StateIdle {
		return ErrTurnInProgress
	}
	m.state = StateAwaitingReply
	m.buffer.Reset()
	m.messageID = ""
	m.deadline = now.Add(m.timeout)
	return nil
}

// =============================================================================
// EVENT HANDLING
// =============================================================================

// HandleEvent applies one inbound protocol event. Events arrive in
// transport order and are never reordered or buffered here.
func (m *Machine) HandleEvent(ev protocol.Event, now time.Time) Result {
	switch ev.Type {
	case protocol.EventRunStarted:
		// Informational only.
		return Result{}

	case protocol.EventMessageStart:
		return m.handleStart(ev, now)

	case protocol.EventMessageDelta:
		return m.handleDelta(ev)

	case protocol.EventMessageEnd:
		return m.handleEnd(ev)

	case protocol.EventMessageCancelled:
		return m.handleCancelled()

	case protocol.EventMessageError, protocol.EventError:
		return m.handleError(ev.Content)

	default:
		return m.drop()
	}
}

func (m *Machine) handleStart(ev protocol.Event, now time.Time) Result {
	if m.state == StateStreaming {
		return m.drop()
	}
	m.state = StateStreaming
	m.buffer.Reset()
	if ev.MessageID != "" {
		m.messageID = ev.MessageID
	}
	m.deadline = now.Add(m.timeout)
	return Result{}
}

func (m *Machine) handleDelta(ev protocol.Event) Result {
	if m.state != StateStreaming {
		return m.drop()
	}
	m.buffer.WriteString(ev.Text())
	return Result{}
}

func (m *Machine) handleEnd(ev protocol.Event) Result {
	// A duplicate delivery after the turn already finished is a no-op,
	// so replays never double-append a message.
	if m.state != StateStreaming && m.state != StateAwaitingReply {
		return m.drop()
	}

	content := ev.Content
	if content == "" {
		content = m.buffer.String()
	}
	messageID := ev.MessageID
	if messageID == "" {
		messageID = m.messageID
	}

	m.reset()
	return Result{Commit: &Commit{
		MessageID: messageID,
		Content:   content,
		Patch:     ev.Patch,
	}}
}

func (m *Machine) handleCancelled() Result {
	if m.state == StateIdle {
		return m.drop()
	}
	m.reset()
	return Result{Notice: &Notice{Level: LevelInfo, Text: "Reply cancelled."}}
}

func (m *Machine) handleError(detail string) Result {
	if m.state == StateIdle {
		return m.drop()
	}
	m.reset()
	text := detail
	if text == "" {
		text = "The assistant reported an error."
	}
	return Result{Notice: &Notice{Level: LevelError, Text: text}}
}

func (m *Machine) drop() Result {
	m.dropped++
	return Result{Dropped: true}
}

// =============================================================================
// LOCAL TRANSITIONS
// =============================================================================

// Cancel abandons the outstanding turn on user request. The turn ends
// immediately even if the transport has not yet delivered the
// corresponding message.cancelled event; when that event does arrive the
// machine is already Idle and drops it.
func (m *Machine) Cancel(now time.Time) Result {
	return m.handleCancelled()
}

// FailTransport abandons the outstanding turn after a socket error or
// disconnect, treated identically to a protocol error event.
func (m *Machine) FailTransport(err error) Result {
	detail := "Connection to the assistant was lost."
	if err != nil {
		detail = "Connection to the assistant was lost: " + err.Error()
	}
	return m.handleError(detail)
}

// CheckTimeout fires the watchdog when the deadline has passed without a
// terminal event: the turn is abandoned, the buffer discarded, and a
// warning surfaced. No message is committed.
func (m *Machine) CheckTimeout(now time.Time) Result {
	if m.state == StateIdle || now.Before(m.deadline) {
		return Result{}
	}
	m.reset()
	return Result{Notice: &Notice{
		Level: LevelWarn,
		Text:  "No reply received in time. The request was abandoned.",
	}}
}
