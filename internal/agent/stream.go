// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent provides the HTTP streaming client for the loom agent
// backend.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/jeranaias/loom-tui/internal/transport"
)

// =============================================================================
// STREAM READER
// =============================================================================

// readStream consumes the NDJSON reply stream line by line, forwarding
// each payload in delivery order. It exits on EOF, a read error, or
// context cancellation.
func (c *Client) readStream(ctx context.Context, resp *http.Response) {
	defer c.wg.Done()
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')

		if payload := bytes.TrimSpace(line); len(payload) > 0 {
			// Copy: the payload crosses a goroutine boundary.
			c.deliver(transport.InboundEvent{Data: append([]byte(nil), payload...)})
		}

		if err != nil {
			// A locally aborted stream is not a transport failure; the
			// turn was already cancelled upstream.
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				// The server closed the stream. After a terminal event
				// the turn is already over and the failure is dropped
				// idle; mid-turn it abandons the turn immediately
				// instead of waiting out the watchdog.
				c.deliver(transport.InboundEvent{Err: io.ErrUnexpectedEOF})
				return
			}
			c.deliver(transport.InboundEvent{Err: err})
			return
		}
	}
}

// deliver forwards an event unless the client is shutting down. Close
// waits for the reader to exit before closing the event channel, so the
// send below never races the close.
func (c *Client) deliver(ev transport.InboundEvent) {
	select {
	case <-c.done:
	case c.events <- ev:
	}
}
