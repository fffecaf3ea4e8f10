// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package artifact implements the versioned side document produced and
// edited alongside the chat.
package artifact

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TYPES
// =============================================================================

// Type classifies the artifact content for rendering.
type Type string

const (
	TypeMarkdown Type = "markdown"
	TypeCode     Type = "code"
	TypeHTML     Type = "html"
)

// Actor identifies who performed a mutation.
type Actor string

const (
	ActorUser      Actor = "user"
	ActorAssistant Actor = "assistant"
)

// DefaultID is the artifact id used when neither the patch nor the
// session names a target.
const DefaultID = "artifact-main"

// =============================================================================
// ARTIFACT
// =============================================================================

// Artifact is a versioned document shown alongside the conversation.
//
// Invariants:
//   - Version starts at 1 and increases by exactly one per accepted
//     mutation (or jumps to a patch-specified version).
//   - History is append-only; its length equals the number of accepted
//     mutations. Entries are never edited, removed, or reordered.
type Artifact struct {
	ID      string         `json:"artifact_id"`
	Type    Type           `json:"type"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Version int            `json:"version"`
	History []HistoryEntry `json:"history"`
}

// HistoryEntry is a permanent audit record of one accepted mutation.
type HistoryEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Actor     Actor     `json:"actor"`
	Summary   string    `json:"summary"`
	Operation string    `json:"operation"`
	Version   int       `json:"version"`
}

// LatestEntry returns the most recent history entry, or nil for an
// artifact with no recorded mutations.
func (a *Artifact) LatestEntry() *HistoryEntry {
	if len(a.History) == 0 {
		return nil
	}
	return &a.History[len(a.History)-1]
}

// newEntryID generates an id for a synthesized history entry.
func newEntryID() string {
	return "hist_" + uuid.NewString()
}
