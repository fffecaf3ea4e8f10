// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package artifact implements the versioned side document produced and
// edited alongside the chat.
package artifact

import (
	"errors"
	"time"

	"github.com/jeranaias/loom-tui/internal/protocol"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoActiveArtifact is returned for a user edit when the session
	// has no artifact selected.
	ErrNoActiveArtifact = errors.New("no active artifact")

	// ErrUnknownArtifact is returned when selecting an id that does not
	// exist in the session.
	ErrUnknownArtifact = errors.New("unknown artifact")

	// ErrEmptyPatch is returned for a nil patch.
	ErrEmptyPatch = errors.New("empty artifact patch")
)

// =============================================================================
// SYNCHRONIZER
// =============================================================================

// Synchronizer owns the session's artifact set and applies mutations in
// event order. It is not safe for concurrent use; all calls happen inside
// the single Update loop.
type Synchronizer struct {
	artifacts []*Artifact
	activeID  string
}

// NewSynchronizer creates an empty synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Load replaces the artifact set from a freshly fetched session. An empty
// active id defaults to the first artifact, matching the session load
// contract.
func (s *Synchronizer) Load(artifacts []*Artifact, activeID string) {
	s.artifacts = artifacts
	s.activeID = ""
	if activeID != "" && s.byID(activeID) != nil {
		s.activeID = activeID
	} else if len(artifacts) > 0 {
		s.activeID = artifacts[0].ID
	}
}

// Artifacts returns the current artifact set in creation order.
func (s *Synchronizer) Artifacts() []*Artifact {
	return s.artifacts
}

// Active returns the currently selected artifact, or nil when the session
// has none.
func (s *Synchronizer) Active() *Artifact {
	return s.byID(s.activeID)
}

// ActiveID returns the id of the selected artifact ("" when none).
func (s *Synchronizer) ActiveID() string {
	return s.activeID
}

// SetActive selects an existing artifact.
func (s *Synchronizer) SetActive(id string) error {
	if s.byID(id) == nil {
		return ErrUnknownArtifact
	}
	s.activeID = id
	return nil
}

func (s *Synchronizer) byID(id string) *Artifact {
	for _, a := range s.artifacts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// =============================================================================
// PATCH APPLICATION
// =============================================================================

// ApplyPatch applies an end-of-turn patch from the assistant.
//
// Target resolution order: the patch's artifact_id, else the session's
// active artifact, else DefaultID. A missing artifact is created at
// version 1 (or the patch-provided version); an existing one has its
// title and content replaced and its version bumped. Either way exactly
// one history entry is appended and the artifact becomes active.
func (s *Synchronizer) ApplyPatch(p *protocol.ArtifactPatch, now time.Time) (*Artifact, error) {
	if p == nil {
		return nil, ErrEmptyPatch
	}

	id := p.ArtifactID
	if id == "" {
		id = s.activeID
	}
	if id == "" {
		id = DefaultID
	}

	target := s.byID(id)
	if target == nil {
		target = s.create(id, p, now)
	} else {
		s.update(target, p, now)
	}

	s.activeID = target.ID
	return target, nil
}

// create makes a new artifact from a patch.
func (s *Synchronizer) create(id string, p *protocol.ArtifactPatch, now time.Time) *Artifact {
	version := p.Version
	if version < 1 {
		version = 1
	}

	a := &Artifact{
		ID:      id,
		Type:    patchType(p),
		Title:   patchTitle(p),
		Content: p.Content,
		Version: version,
	}
	a.History = append(a.History, entryFromPatch(p, ActorAssistant, "replace", version, now))
	s.artifacts = append(s.artifacts, a)
	return a
}

// update mutates an existing artifact in place.
func (s *Synchronizer) update(a *Artifact, p *protocol.ArtifactPatch, now time.Time) {
	if p.Title != "" {
		a.Title = p.Title
	}
	a.Content = p.Content
	if p.Type != "" {
		a.Type = Type(p.Type)
	}

	if p.Version > 0 {
		a.Version = p.Version
	} else {
		a.Version = a.Version + 1
	}

	a.History = append(a.History, entryFromPatch(p, ActorAssistant, "replace", a.Version, now))
}

// =============================================================================
// USER EDITS
// =============================================================================

// ApplyUserEdit applies a manual edit to the active artifact. User edits
// bypass patch resolution (the target is already selected) and always
// bump the version by exactly one.
func (s *Synchronizer) ApplyUserEdit(content, summary string, now time.Time) (*Artifact, error) {
	target := s.Active()
	if target == nil {
		return nil, ErrNoActiveArtifact
	}

	target.Content = content
	target.Version = target.Version + 1
	if summary == "" {
		summary = "Manual edit"
	}
	target.History = append(target.History, HistoryEntry{
		ID:        newEntryID(),
		CreatedAt: now,
		Actor:     ActorUser,
		Summary:   summary,
		Operation: "replace",
		Version:   target.Version,
	})

	return target, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// entryFromPatch uses the server-supplied history entry when present and
// synthesizes one otherwise. The recorded version always matches the
// version the mutation landed at.
func entryFromPatch(p *protocol.ArtifactPatch, actor Actor, operation string, version int, now time.Time) HistoryEntry {
	if h := p.History; h != nil {
		e := HistoryEntry{
			ID:        h.ID,
			CreatedAt: h.CreatedAt,
			Actor:     Actor(h.Actor),
			Summary:   h.Summary,
			Operation: h.Operation,
			Version:   version,
		}
		if e.ID == "" {
			e.ID = newEntryID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.Actor == "" {
			e.Actor = actor
		}
		if e.Operation == "" {
			e.Operation = operation
		}
		return e
	}

	summary := p.Title
	if summary == "" {
		summary = "Assistant update"
	}
	return HistoryEntry{
		ID:        newEntryID(),
		CreatedAt: now,
		Actor:     actor,
		Summary:   summary,
		Operation: operation,
		Version:   version,
	}
}

func patchType(p *protocol.ArtifactPatch) Type {
	if p.Type != "" {
		return Type(p.Type)
	}
	return TypeMarkdown
}

func patchTitle(p *protocol.ArtifactPatch) string {
	if p.Title != "" {
		return p.Title
	}
	return "Untitled"
}
