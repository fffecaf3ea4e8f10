// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport defines the socket port the synchronization engine
// talks through.
package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jeranaias/loom-tui/internal/protocol"
)

// =============================================================================
// FAKE TRANSPORT (TESTS)
// =============================================================================

// Fake is a scripted transport for tests. Sends are recorded; inbound
// events are emitted on demand.
type Fake struct {
	mu sync.Mutex

	// AcceptSends controls what Send reports; default true.
	AcceptSends bool

	// SendErr is returned from Send alongside a rejection.
	SendErr error

	sent    []string
	events  chan InboundEvent
	stopped int
	closed  bool
}

// NewFake creates a fake transport with a buffered event channel.
func NewFake() *Fake {
	return &Fake{
		AcceptSends: true,
		events:      make(chan InboundEvent, 64),
	}
}

// Send records the message and reports acceptance per AcceptSends.
func (f *Fake) Send(ctx context.Context, text string, sctx protocol.SendContext) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.AcceptSends {
		return false, f.SendErr
	}
	f.sent = append(f.sent, text)
	return true, nil
}

// Events returns the scripted inbound stream.
func (f *Fake) Events() <-chan InboundEvent {
	return f.events
}

// Stop records a stream abort request.
func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

// Close closes the event channel.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// Sent returns the texts accepted so far.
func (f *Fake) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// Stopped returns how many times Stop was called.
func (f *Fake) Stopped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// Emit queues a protocol event as a JSON payload.
func (f *Fake) Emit(ev protocol.Event) {
	data, _ := json.Marshal(ev)
	f.events <- InboundEvent{Data: data}
}

// EmitRaw queues a raw payload, for malformed-input tests.
func (f *Fake) EmitRaw(data []byte) {
	f.events <- InboundEvent{Data: data}
}

// EmitError queues a transport-level failure.
func (f *Fake) EmitError(err error) {
	f.events <- InboundEvent{Err: err}
}
