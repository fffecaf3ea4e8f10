// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/loom-tui/internal/artifact"
	"github.com/jeranaias/loom-tui/internal/util"
)

// MaxMessages caps the transcript length. When exceeded, the oldest
// messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// UI STATE
// =============================================================================

// UIState is the per-session view state persisted alongside the
// transcript so a session reopens the way it was left.
type UIState struct {
	RightTab  string `json:"right_tab,omitempty"`
	LeftWidth int    `json:"left_width,omitempty"`
	Selection string `json:"selection,omitempty"`
}

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds a complete chat session: transcript, artifacts, and view
// state. It is owned exclusively by the active view instance; the server
// copy is eventually consistent (last write wins).
type Session struct {
	ID               string               `json:"session_id"`
	Title            string               `json:"title"`
	Messages         []*Message           `json:"messages"`
	Artifacts        []*artifact.Artifact `json:"artifacts"`
	ActiveArtifactID string               `json:"active_artifact_id,omitempty"`
	UIState          UIState              `json:"ui_state"`
	CreatedAt        time.Time            `json:"created_at,omitempty"`
	UpdatedAt        time.Time            `json:"updated_at,omitempty"`
}

// NewSession creates an empty session with a generated ID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        "sess_" + uuid.NewString(),
		Title:     "New session",
		Messages:  make([]*Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a committed message to the transcript.
func (s *Session) AddMessage(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	s.updateTitle()
	s.pruneOldMessages()
}

// AddUserMessage creates and appends a user message.
func (s *Session) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	s.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and appends an assistant message.
func (s *Session) AddAssistantMessage(content string) *Message {
	msg := NewAssistantMessage(content)
	s.AddMessage(msg)
	return msg
}

// updateTitle derives a title from the first user message when the
// session still carries the default one.
func (s *Session) updateTitle() {
	if s.Title != "" && s.Title != "New session" {
		return
	}
	for _, msg := range s.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			title := strings.ReplaceAll(msg.Content, "\n", " ")
			s.Title = util.TruncateRunes(title, 50)
			return
		}
	}
}

// pruneOldMessages drops the oldest messages past MaxMessages.
func (s *Session) pruneOldMessages() {
	if len(s.Messages) <= MaxMessages {
		return
	}
	excess := len(s.Messages) - MaxMessages
	s.Messages = append([]*Message(nil), s.Messages[excess:]...)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize repairs a freshly loaded session: tool-role messages are
// filtered out of the transcript (internal bookkeeping, never shown) and
// an absent or dangling active artifact id falls back to the first
// artifact.
func (s *Session) Normalize() {
	visible := s.Messages[:0]
	for _, msg := range s.Messages {
		if msg.Role == RoleTool {
			continue
		}
		visible = append(visible, msg)
	}
	s.Messages = visible

	if s.findArtifact(s.ActiveArtifactID) == nil {
		s.ActiveArtifactID = ""
	}
	if s.ActiveArtifactID == "" && len(s.Artifacts) > 0 {
		s.ActiveArtifactID = s.Artifacts[0].ID
	}
}

func (s *Session) findArtifact(id string) *artifact.Artifact {
	if id == "" {
		return nil
	}
	for _, a := range s.Artifacts {
		if a.ID == id {
			return a
		}
	}
	return nil
}
