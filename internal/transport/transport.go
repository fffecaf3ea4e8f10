// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport defines the socket port the synchronization engine
// talks through.
//
// The engine never owns a connection; it sends through this interface
// and consumes raw inbound events from the Events channel in delivery
// order. The production implementation lives in the agent package; tests
// use Fake.
package transport

import (
	"context"

	"github.com/jeranaias/loom-tui/internal/protocol"
)

// =============================================================================
// PORT
// =============================================================================

// InboundEvent is one raw event delivered by the transport. Err is set
// for transport-level failures (disconnect, read error); Data otherwise
// holds an undecoded protocol event payload.
type InboundEvent struct {
	Data []byte
	Err  error
}

// Transport is the outbound/inbound surface of the agent connection.
type Transport interface {
	// Send submits a user message. The boolean reports whether the
	// transport accepted the send; false (with or without an error)
	// means the turn must not start and the draft stays intact.
	Send(ctx context.Context, text string, sctx protocol.SendContext) (bool, error)

	// Events returns the inbound event stream. Events are delivered in
	// transport order and are never reordered.
	Events() <-chan InboundEvent

	// Stop aborts the in-flight reply stream, if any.
	Stop()

	// Close releases the connection and closes the event channel.
	Close() error
}
