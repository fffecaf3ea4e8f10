// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store keeps the remote session store eventually consistent
// with local session state.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jeranaias/loom-tui/internal/artifact"
	"github.com/jeranaias/loom-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the session store.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes store errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrSessionNotFound = &ClientError{Type: ErrTypeNotFound, Message: "session not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the store client.
type ClientConfig struct {
	// BaseURL is the session store base URL (default: http://127.0.0.1:8787)
	BaseURL string

	// Timeout bounds each request (default: 15s)
	Timeout time.Duration
}

// DefaultConfig returns the default store client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8787",
		Timeout: 15 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the session store REST surface. It is safe for
// concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a store client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a store client with custom configuration.
func NewClientWithConfig(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// SessionMeta is the listing shape for the session switcher.
type SessionMeta struct {
	ID           string    `json:"session_id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// SessionPatch is a partial session update. Nil fields are omitted so
// each save only touches what changed; the server applies last write
// wins.
type SessionPatch struct {
	Title            *string              `json:"title,omitempty"`
	Messages         []*model.Message     `json:"messages,omitempty"`
	Artifacts        []*artifact.Artifact `json:"artifacts,omitempty"`
	ActiveArtifactID *string              `json:"active_artifact_id,omitempty"`
	UIState          *model.UIState       `json:"ui_state,omitempty"`
}

// GetSession fetches a session. Tool-role messages are filtered from the
// transcript and a missing active artifact id defaults to the first
// artifact.
func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSessionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp.StatusCode, "load session")
	}

	var session model.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "decode session", Cause: err}
	}

	session.Normalize()
	return &session, nil
}

// PutSession writes a partial session update. Each call is independent
// and idempotent.
func (c *Client) PutSession(ctx context.Context, id string, patch SessionPatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "encode session patch", Cause: err}
	}

	resp, err := c.do(ctx, http.MethodPut, "/api/sessions/"+url.PathEscape(id), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, "save session")
	}
	return nil
}

// ListSessions fetches session metadata, most recent first.
func (c *Client) ListSessions(ctx context.Context, query string, recent int) ([]SessionMeta, error) {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if recent > 0 {
		params.Set("recent", strconv.Itoa(recent))
	}
	path := "/api/sessions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp.StatusCode, "list sessions")
	}

	var metas []SessionMeta
	if err := json.NewDecoder(resp.Body).Decode(&metas); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "decode session list", Cause: err}
	}
	return metas, nil
}

// CreateSession creates a fresh server-side session.
func (c *Client) CreateSession(ctx context.Context) (*model.Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/sessions", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, "create session")
	}

	var session model.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "decode created session", Cause: err}
	}
	session.Normalize()
	return &session, nil
}

// LoadOrCreate resolves the session to open: the most recent match, or a
// brand new one when the list is empty. The switcher never dead-ends on
// zero sessions.
func (c *Client) LoadOrCreate(ctx context.Context, query string) (*model.Session, error) {
	metas, err := c.ListSessions(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return c.CreateSession(ctx)
	}
	return c.GetSession(ctx, metas[0].ID)
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "build request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "session store unreachable", Cause: err}
	}
	return resp, nil
}

func (c *Client) statusError(code int, op string) error {
	return &ClientError{
		Type:    ErrTypeUnknown,
		Message: fmt.Sprintf("%s: unexpected status %d", op, code),
	}
}
