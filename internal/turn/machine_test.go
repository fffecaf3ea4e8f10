// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn implements the protocol state machine for one
// user-message-to-assistant-reply cycle.
package turn

import (
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/loom-tui/internal/protocol"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func startedMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine()
	if err := m.BeginTurn(t0); err != nil {
		t.Fatalf("BeginTurn failed: %v", err)
	}
	return m
}

func ev(typ protocol.EventType) protocol.Event {
	return protocol.Event{Type: typ}
}

// =============================================================================
// TURN INITIATION
// =============================================================================

func TestBeginTurn(t *testing.T) {
	m := NewMachine()
	if m.State() != StateIdle {
		t.Fatalf("New machine must be idle, got %v", m.State())
	}

	if err := m.BeginTurn(t0); err != nil {
		t.Fatalf("BeginTurn failed: %v", err)
	}
	if m.State() != StateAwaitingReply {
		t.Errorf("Expected awaiting-reply, got %v", m.State())
	}
	if got := m.Deadline(); got != t0.Add(DefaultReplyTimeout) {
		t.Errorf("Expected watchdog at +120s, got %v", got)
	}
}

func TestBeginTurnRejectedWhileActive(t *testing.T) {
	m := startedMachine(t)

	if err := m.BeginTurn(t0); !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("Expected ErrTurnInProgress, got %v", err)
	}

	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	if err := m.BeginTurn(t0); !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("Expected ErrTurnInProgress while streaming, got %v", err)
	}
}

// =============================================================================
// STREAMING TRANSITIONS
// =============================================================================

func TestHelloWorldScenario(t *testing.T) {
	m := startedMachine(t)

	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	if m.State() != StateStreaming {
		t.Fatalf("Expected streaming, got %v", m.State())
	}

	for _, chunk := range []string{"Hel", "lo ", "world"} {
		res := m.HandleEvent(protocol.Event{Type: protocol.EventMessageDelta, Delta: chunk}, t0)
		if res.Dropped {
			t.Fatalf("Delta %q dropped unexpectedly", chunk)
		}
	}
	if m.Buffer() != "Hello world" {
		t.Errorf("Expected buffer 'Hello world', got %q", m.Buffer())
	}

	// End with no content field: the accumulated buffer is the message.
	res := m.HandleEvent(ev(protocol.EventMessageEnd), t0)
	if res.Commit == nil {
		t.Fatal("Expected a commit")
	}
	if res.Commit.Content != "Hello world" {
		t.Errorf("Expected committed content 'Hello world', got %q", res.Commit.Content)
	}
	if m.State() != StateIdle {
		t.Errorf("Expected idle after end, got %v", m.State())
	}
}

func TestEndContentOverridesBuffer(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	m.HandleEvent(protocol.Event{Type: protocol.EventMessageDelta, Delta: "partial"}, t0)

	res := m.HandleEvent(protocol.Event{Type: protocol.EventMessageEnd, Content: "final text"}, t0)
	if res.Commit == nil || res.Commit.Content != "final text" {
		t.Errorf("Expected explicit content to win, got %+v", res.Commit)
	}
}

func TestDeltalessReply(t *testing.T) {
	// message.end straight from awaiting-reply covers replies without a
	// message.start.
	m := startedMachine(t)

	res := m.HandleEvent(protocol.Event{Type: protocol.EventMessageEnd, Content: "short answer"}, t0)
	if res.Commit == nil || res.Commit.Content != "short answer" {
		t.Errorf("Expected commit from awaiting-reply, got %+v", res.Commit)
	}
}

func TestDeltaUsesContentFallback(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	m.HandleEvent(protocol.Event{Type: protocol.EventMessageDelta, Content: "via content"}, t0)

	if m.Buffer() != "via content" {
		t.Errorf("Expected content fallback, got %q", m.Buffer())
	}
}

func TestStartClearsStaleBuffer(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	m.HandleEvent(protocol.Event{Type: protocol.EventMessageDelta, Delta: "stale"}, t0)
	m.Cancel(t0)

	if err := m.BeginTurn(t0); err != nil {
		t.Fatalf("BeginTurn failed: %v", err)
	}
	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	if m.Buffer() != "" {
		t.Errorf("Expected cleared buffer on start, got %q", m.Buffer())
	}
}

func TestRunStartedIsInformational(t *testing.T) {
	m := startedMachine(t)
	res := m.HandleEvent(ev(protocol.EventRunStarted), t0)
	if res.Dropped || res.Commit != nil || res.Notice != nil {
		t.Errorf("run.started must be a pure no-op, got %+v", res)
	}
	if m.State() != StateAwaitingReply {
		t.Errorf("State changed on run.started: %v", m.State())
	}
}

// =============================================================================
// INVALID / DUPLICATE EVENTS
// =============================================================================

func TestDuplicateEndIsNoOp(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	first := m.HandleEvent(protocol.Event{Type: protocol.EventMessageEnd, Content: "done"}, t0)
	if first.Commit == nil {
		t.Fatal("Expected commit on first end")
	}

	// Duplicate delivery while idle must not double-append.
	dup := m.HandleEvent(protocol.Event{Type: protocol.EventMessageEnd, Content: "done"}, t0)
	if dup.Commit != nil {
		t.Error("Duplicate end produced a second commit")
	}
	if !dup.Dropped {
		t.Error("Duplicate end should be reported as dropped")
	}
}

func TestStrayDeltaDropped(t *testing.T) {
	m := NewMachine()
	res := m.HandleEvent(protocol.Event{Type: protocol.EventMessageDelta, Delta: "x"}, t0)
	if !res.Dropped {
		t.Error("Delta while idle must be dropped")
	}
	if m.DroppedEvents() != 1 {
		t.Errorf("Expected dropped counter 1, got %d", m.DroppedEvents())
	}
}

func TestStartWhileStreamingDropped(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	m.HandleEvent(protocol.Event{Type: protocol.EventMessageDelta, Delta: "keep"}, t0)

	res := m.HandleEvent(ev(protocol.EventMessageStart), t0)
	if !res.Dropped {
		t.Error("Second start while streaming must be dropped")
	}
	if m.Buffer() != "keep" {
		t.Errorf("Buffer lost on dropped start: %q", m.Buffer())
	}
}

// =============================================================================
// CANCEL / ERROR OUTCOMES
// =============================================================================

func TestCancelledDiscardsWithoutCommit(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)
	m.HandleEvent(protocol.Event{Type: protocol.EventMessageDelta, Delta: "half a rep"}, t0)

	res := m.HandleEvent(ev(protocol.EventMessageCancelled), t0)
	if res.Commit != nil {
		t.Error("Cancelled turn must not commit a message")
	}
	if res.Notice == nil || res.Notice.Level != LevelInfo {
		t.Errorf("Expected info notice, got %+v", res.Notice)
	}
	if m.State() != StateIdle || m.Buffer() != "" {
		t.Errorf("Expected idle with empty buffer, got %v %q", m.State(), m.Buffer())
	}
}

func TestErrorSurfacesServerMessage(t *testing.T) {
	m := startedMachine(t)
	res := m.HandleEvent(protocol.Event{Type: protocol.EventMessageError, Content: "model overloaded"}, t0)
	if res.Notice == nil || res.Notice.Level != LevelError {
		t.Fatalf("Expected error notice, got %+v", res.Notice)
	}
	if res.Notice.Text != "model overloaded" {
		t.Errorf("Server message must surface verbatim, got %q", res.Notice.Text)
	}
	if res.Commit != nil {
		t.Error("Failed turn must not commit a message")
	}
}

func TestLocalCancelThenLateServerEvent(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)

	res := m.Cancel(t0)
	if res.Notice == nil {
		t.Fatal("Expected cancel notice")
	}
	if m.State() != StateIdle {
		t.Fatalf("Expected idle after local cancel, got %v", m.State())
	}

	// The server's own cancelled event arrives later and is dropped.
	late := m.HandleEvent(ev(protocol.EventMessageCancelled), t0)
	if !late.Dropped {
		t.Error("Late server cancel must be dropped")
	}
}

func TestTransportFailureAbandonsTurn(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)

	res := m.FailTransport(errors.New("connection reset"))
	if res.Notice == nil || res.Notice.Level != LevelError {
		t.Fatalf("Expected error notice, got %+v", res.Notice)
	}
	if m.State() != StateIdle {
		t.Errorf("Expected idle after transport failure, got %v", m.State())
	}
}

// =============================================================================
// WATCHDOG
// =============================================================================

func TestTimeoutScenario(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(ev(protocol.EventMessageStart), t0)

	// 121 seconds elapse with no further event.
	res := m.CheckTimeout(t0.Add(121 * time.Second))
	if res.Notice == nil || res.Notice.Level != LevelWarn {
		t.Fatalf("Expected timeout warning, got %+v", res.Notice)
	}
	if res.Commit != nil {
		t.Error("Timeout must not commit a message")
	}
	if m.State() != StateIdle {
		t.Errorf("Expected idle after timeout, got %v", m.State())
	}
}

func TestTimeoutNotBeforeDeadline(t *testing.T) {
	m := startedMachine(t)

	res := m.CheckTimeout(t0.Add(119 * time.Second))
	if res.Notice != nil {
		t.Error("Watchdog fired before the deadline")
	}
	if m.State() != StateAwaitingReply {
		t.Errorf("State changed before deadline: %v", m.State())
	}
}

func TestTerminalEventSupersedesWatchdog(t *testing.T) {
	m := startedMachine(t)
	m.HandleEvent(protocol.Event{Type: protocol.EventMessageEnd, Content: "ok"}, t0)

	// The deadline was cleared with the terminal event.
	res := m.CheckTimeout(t0.Add(10 * time.Minute))
	if res.Notice != nil {
		t.Error("Watchdog fired after the turn already ended")
	}
}

func TestWatchdogRearmedOnStreamingEntry(t *testing.T) {
	m := NewMachineWithTimeout(time.Minute)
	if err := m.BeginTurn(t0); err != nil {
		t.Fatal(err)
	}

	// message.start 30s in pushes the deadline out from that moment.
	m.HandleEvent(ev(protocol.EventMessageStart), t0.Add(30*time.Second))
	if res := m.CheckTimeout(t0.Add(65 * time.Second)); res.Notice != nil {
		t.Error("Watchdog fired before the re-armed deadline")
	}
	if res := m.CheckTimeout(t0.Add(91 * time.Second)); res.Notice == nil {
		t.Error("Watchdog missed the re-armed deadline")
	}
}

// =============================================================================
// COMPLETED TURN COMMITS EXACTLY ONCE
// =============================================================================

func TestCompletedTurnCommitsExactlyOnce(t *testing.T) {
	m := NewMachine()

	outcomes := []struct {
		name     string
		terminal protocol.Event
		commits  int
	}{
		{"completed", protocol.Event{Type: protocol.EventMessageEnd, Content: "x"}, 1},
		{"cancelled", ev(protocol.EventMessageCancelled), 0},
		{"failed", ev(protocol.EventMessageError), 0},
	}

	for _, tc := range outcomes {
		if err := m.BeginTurn(t0); err != nil {
			t.Fatalf("%s: BeginTurn failed: %v", tc.name, err)
		}
		m.HandleEvent(ev(protocol.EventMessageStart), t0)

		commits := 0
		if res := m.HandleEvent(tc.terminal, t0); res.Commit != nil {
			commits++
		}
		if commits != tc.commits {
			t.Errorf("%s: expected %d commits, got %d", tc.name, tc.commits, commits)
		}
		if m.State() != StateIdle {
			t.Errorf("%s: machine not idle after terminal event", tc.name)
		}
	}
}

func TestCommitCarriesPatch(t *testing.T) {
	m := startedMachine(t)
	res := m.HandleEvent(protocol.Event{
		Type:    protocol.EventMessageEnd,
		Content: "here is your document",
		Patch:   &protocol.ArtifactPatch{Content: "# Doc"},
	}, t0)

	if res.Commit == nil || res.Commit.Patch == nil {
		t.Fatal("Expected commit with attached patch")
	}
	if res.Commit.Patch.Content != "# Doc" {
		t.Errorf("Unexpected patch content %q", res.Commit.Patch.Content)
	}
}
