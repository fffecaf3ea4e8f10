// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions and messages.
//
// This package defines the core domain types used throughout the
// application for representing chat sessions and their transcripts.
//
// # Key Types
//
//   - Session: Container for a chat session with messages, artifacts,
//     and persisted UI state
//   - Message: Single message with role, content, and timestamp
//   - Role: Message role enumeration (user, assistant, system, tool)
//
// Messages are immutable once committed to a session; the only mutable
// message text in the application is the in-flight streaming buffer,
// which lives in the turn machine and is merged into the transcript by
// the view layer without ever being persisted.
package model
