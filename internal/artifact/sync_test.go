// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package artifact implements the versioned side document produced and
// edited alongside the chat.
package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/loom-tui/internal/protocol"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// =============================================================================
// PATCH APPLICATION
// =============================================================================

func TestApplyPatchCreatesArtifact(t *testing.T) {
	s := NewSynchronizer()

	a, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "# Doc", Version: 1}, testNow)
	require.NoError(t, err)

	assert.Equal(t, DefaultID, a.ID)
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, "# Doc", a.Content)
	require.Len(t, a.History, 1)
	assert.Equal(t, ActorAssistant, a.History[0].Actor)
	assert.Equal(t, "replace", a.History[0].Operation)
	assert.Equal(t, 1, a.History[0].Version)
	assert.Equal(t, a.ID, s.ActiveID(), "new artifact must become active")
}

func TestApplyPatchBumpsVersion(t *testing.T) {
	s := NewSynchronizer()

	_, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "# Doc", Version: 1}, testNow)
	require.NoError(t, err)

	// Second patch with no explicit version: previous + 1.
	a, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "# Doc v2"}, testNow)
	require.NoError(t, err)

	assert.Equal(t, 2, a.Version)
	assert.Len(t, a.History, 2)
	assert.Equal(t, "# Doc v2", a.Content)
}

func TestApplyPatchExplicitVersion(t *testing.T) {
	s := NewSynchronizer()
	_, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "v1"}, testNow)
	require.NoError(t, err)

	a, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "v7", Version: 7}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 7, a.Version)
	assert.Equal(t, 7, a.History[1].Version)
}

func TestApplyPatchResolvesTarget(t *testing.T) {
	s := NewSynchronizer()
	s.Load([]*Artifact{
		{ID: "a1", Version: 1, History: []HistoryEntry{{Version: 1}}},
		{ID: "a2", Version: 4, History: []HistoryEntry{{Version: 4}}},
	}, "a2")

	// No artifact_id in the patch: the active artifact is the target.
	a, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "new"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "a2", a.ID)
	assert.Equal(t, 5, a.Version)

	// Explicit artifact_id wins over the active artifact.
	a, err = s.ApplyPatch(&protocol.ArtifactPatch{ArtifactID: "a1", Content: "x"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, 2, a.Version)
	assert.Equal(t, "a1", s.ActiveID(), "patched artifact becomes active")
}

func TestApplyPatchKeepsTitleWhenAbsent(t *testing.T) {
	s := NewSynchronizer()
	_, err := s.ApplyPatch(&protocol.ArtifactPatch{Title: "Report", Content: "v1"}, testNow)
	require.NoError(t, err)

	a, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "v2"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Report", a.Title)
}

func TestApplyPatchServerHistoryEntry(t *testing.T) {
	s := NewSynchronizer()
	a, err := s.ApplyPatch(&protocol.ArtifactPatch{
		Content: "v1",
		History: &protocol.PatchHistoryEntry{Summary: "Initial draft", Actor: "assistant"},
	}, testNow)
	require.NoError(t, err)

	require.Len(t, a.History, 1)
	assert.Equal(t, "Initial draft", a.History[0].Summary)
	assert.NotEmpty(t, a.History[0].ID, "missing entry id must be synthesized")
	assert.Equal(t, testNow, a.History[0].CreatedAt)
}

func TestApplyPatchNil(t *testing.T) {
	s := NewSynchronizer()
	_, err := s.ApplyPatch(nil, testNow)
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

// =============================================================================
// HISTORY INVARIANTS
// =============================================================================

func TestHistoryAppendOnly(t *testing.T) {
	s := NewSynchronizer()

	var prev []HistoryEntry
	for i := 0; i < 5; i++ {
		a, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "rev"}, testNow)
		require.NoError(t, err)

		require.Len(t, a.History, i+1)
		for j, e := range prev {
			assert.Equal(t, e.ID, a.History[j].ID, "existing entries must not move")
		}
		prev = append([]HistoryEntry(nil), a.History...)
	}
}

func TestVersionMonotonic(t *testing.T) {
	s := NewSynchronizer()

	before := 0
	for i := 0; i < 4; i++ {
		a, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "rev"}, testNow)
		require.NoError(t, err)
		assert.Equal(t, before+1, a.Version)
		before = a.Version
	}
}

// =============================================================================
// USER EDITS
// =============================================================================

func TestApplyUserEdit(t *testing.T) {
	s := NewSynchronizer()
	_, err := s.ApplyPatch(&protocol.ArtifactPatch{Content: "v1", Version: 1}, testNow)
	require.NoError(t, err)

	a, err := s.ApplyUserEdit("edited", "Tweaked intro", testNow)
	require.NoError(t, err)

	assert.Equal(t, "edited", a.Content)
	assert.Equal(t, 2, a.Version)
	require.Len(t, a.History, 2)
	assert.Equal(t, ActorUser, a.History[1].Actor)
	assert.Equal(t, "Tweaked intro", a.History[1].Summary)
}

func TestApplyUserEditNoActive(t *testing.T) {
	s := NewSynchronizer()
	_, err := s.ApplyUserEdit("text", "", testNow)
	assert.ErrorIs(t, err, ErrNoActiveArtifact)
}

// =============================================================================
// LOAD / SELECTION
// =============================================================================

func TestLoadDefaultsActiveToFirst(t *testing.T) {
	s := NewSynchronizer()
	s.Load([]*Artifact{{ID: "a1"}, {ID: "a2"}}, "")
	assert.Equal(t, "a1", s.ActiveID())
}

func TestLoadIgnoresDanglingActive(t *testing.T) {
	s := NewSynchronizer()
	s.Load([]*Artifact{{ID: "a1"}}, "missing")
	assert.Equal(t, "a1", s.ActiveID())
}

func TestSetActiveUnknown(t *testing.T) {
	s := NewSynchronizer()
	s.Load([]*Artifact{{ID: "a1"}}, "a1")
	assert.ErrorIs(t, s.SetActive("nope"), ErrUnknownArtifact)
	assert.NoError(t, s.SetActive("a1"))
}
