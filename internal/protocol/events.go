// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the wire-level event types exchanged with the
// loom agent backend.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType identifies an inbound stream event variant.
type EventType string

const (
	// EventRunStarted announces that the backend accepted the run.
	// Informational only; drives no state transition.
	EventRunStarted EventType = "run.started"

	// EventMessageStart opens the assistant reply stream.
	EventMessageStart EventType = "message.start"

	// EventMessageDelta carries an incremental chunk of reply text.
	EventMessageDelta EventType = "message.delta"

	// EventMessageEnd closes the reply, optionally with full content and
	// an artifact patch.
	EventMessageEnd EventType = "message.end"

	// EventMessageCancelled reports that the backend abandoned the reply.
	EventMessageCancelled EventType = "message.cancelled"

	// EventMessageError reports a failure while producing the reply.
	EventMessageError EventType = "message.error"

	// EventError reports a run-level failure.
	EventError EventType = "error"
)

// knownTypes is the closed set of event types this client understands.
var knownTypes = map[EventType]bool{
	EventRunStarted:       true,
	EventMessageStart:     true,
	EventMessageDelta:     true,
	EventMessageEnd:       true,
	EventMessageCancelled: true,
	EventMessageError:     true,
	EventError:            true,
}

// Terminal reports whether the event type ends the current turn.
func (t EventType) Terminal() bool {
	switch t {
	case EventMessageEnd, EventMessageCancelled, EventMessageError, EventError:
		return true
	}
	return false
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnknownType is returned by Decode for event types outside the union.
var ErrUnknownType = errors.New("unknown event type")

// ErrEmptyEvent is returned by Decode for payloads with no "type" field.
var ErrEmptyEvent = errors.New("event has no type")

// =============================================================================
// EVENT
// =============================================================================

// Event is a single inbound stream event. Only the fields valid for the
// variant named by Type are populated; the rest stay zero.
type Event struct {
	Type      EventType      `json:"type"`
	MessageID string         `json:"message_id,omitempty"`
	Delta     string         `json:"delta,omitempty"`
	Content   string         `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// Patch is the artifact mutation attached to a message.end event.
	Patch *ArtifactPatch `json:"artifact_patch,omitempty"`
}

// Text returns the streamed text for a delta event: the delta field when
// present, else the content field.
func (e Event) Text() string {
	if e.Delta != "" {
		return e.Delta
	}
	return e.Content
}

// Decode parses a raw event payload and validates its type against the
// closed union. Payloads with an unknown type return ErrUnknownType so
// the caller can count and drop them.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, ErrEmptyEvent
	}
	if !knownTypes[ev.Type] {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, ev.Type)
	}
	return ev, nil
}

// =============================================================================
// ARTIFACT PATCH
// =============================================================================

// ArtifactPatch describes how a completed turn mutates the side document.
// ArtifactID and Version are optional; when absent the synchronizer
// resolves the target from the session's active artifact and bumps the
// previous version by one.
type ArtifactPatch struct {
	ArtifactID string             `json:"artifact_id,omitempty"`
	Type       string             `json:"type,omitempty"`
	Title      string             `json:"title,omitempty"`
	Content    string             `json:"content"`
	Version    int                `json:"version,omitempty"`
	History    *PatchHistoryEntry `json:"history_entry,omitempty"`
}

// PatchHistoryEntry is a server-supplied audit entry for a patch. When
// absent the synchronizer synthesizes one.
type PatchHistoryEntry struct {
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Version   int       `json:"version,omitempty"`
}

// =============================================================================
// OUTBOUND SEND
// =============================================================================

// SendContext carries the generation context attached to an outbound
// user message.
type SendContext struct {
	ModelType        string `json:"model_type,omitempty"`
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	WorkMode         string `json:"work_mode,omitempty"`
	WorkSessionID    string `json:"work_session_id,omitempty"`
	ActiveArtifactID string `json:"active_artifact_id,omitempty"`
	Selection        string `json:"selection,omitempty"`
}
