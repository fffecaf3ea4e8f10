// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent provides the HTTP streaming client for the loom agent
// backend.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/loom-tui/internal/protocol"
	"github.com/jeranaias/loom-tui/internal/transport"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the agent client.
type ClientConfig struct {
	// BaseURL is the agent API base URL (default: http://127.0.0.1:8787).
	// Explicit IPv4 avoids IPv6 resolution issues on Windows.
	BaseURL string

	// SendTimeout bounds connection establishment for a send (default: 10s).
	// The reply stream itself is not bounded here; the turn watchdog
	// handles stalled replies.
	SendTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:     "http://127.0.0.1:8787",
		SendTimeout: 10 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client streams agent replies over HTTP NDJSON and implements the
// transport port. One reply stream is active at a time, matching the
// single-turn discipline upstream.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client

	events chan transport.InboundEvent

	// done gates deliveries during shutdown; wg tracks the active
	// stream reader so Close can drain it before closing events.
	done chan struct{}
	wg   sync.WaitGroup

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	closeOnce sync.Once
}

// NewClient creates an agent client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates an agent client with custom configuration.
func NewClientWithConfig(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultConfig().SendTimeout
	}

	return &Client{
		config: cfg,
		// No overall client timeout: the response body is a long-lived
		// stream. Connection establishment is bounded per request.
		httpClient: &http.Client{},
		events:     make(chan transport.InboundEvent, 64),
		done:       make(chan struct{}),
	}
}

// sendRequest is the POST body for /api/stream.
type sendRequest struct {
	Message string               `json:"message"`
	Context protocol.SendContext `json:"context"`
}

// Send submits a user message and starts reading the reply stream. A
// false return means the backend did not accept the send; the caller
// keeps the draft and stays idle.
func (c *Client) Send(ctx context.Context, text string, sctx protocol.SendContext) (bool, error) {
	body, err := json.Marshal(sendRequest{Message: text, Context: sctx})
	if err != nil {
		return false, fmt.Errorf("encode send: %w", err)
	}

	// The reply stream must outlive the Send call, so it runs on its own
	// cancellable context. Stop aborts it.
	streamCtx, cancel := context.WithCancel(context.Background())

	connectCtx, connectDone := context.WithTimeout(ctx, c.config.SendTimeout)
	defer connectDone()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.config.BaseURL+"/api/stream", bytes.NewReader(body))
	if err != nil {
		cancel()
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return false, fmt.Errorf("send rejected: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return false, fmt.Errorf("send rejected: status %d", resp.StatusCode)
	}

	// Guard against the connect timeout having fired between Do and here.
	select {
	case <-connectCtx.Done():
		resp.Body.Close()
		cancel()
		return false, connectCtx.Err()
	default:
	}

	c.setCancel(cancel)
	c.wg.Add(1)
	go c.readStream(streamCtx, resp)
	return true, nil
}

// Events returns the inbound event stream.
func (c *Client) Events() <-chan transport.InboundEvent {
	return c.events
}

// Stop aborts the in-flight reply stream, if any. Safe to call at any
// time; a stream aborted locally emits no transport error (the turn was
// already cancelled optimistically upstream).
func (c *Client) Stop() {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Close aborts any stream and closes the event channel. The reader is
// drained first so no delivery races the close.
func (c *Client) Close() error {
	c.Stop()
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		close(c.events)
	})
	return nil
}

func (c *Client) setCancel(cancel context.CancelFunc) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
}
