// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main loom view: the transcript pane, the
// artifact pane, the composer, and the status bar, wired to the turn
// state machine, the artifact synchronizer, the session persister, and
// the draft store.
//
// All state mutation happens synchronously inside Update. Background
// work (the reply stream, sends, saves) reaches the view only as
// bubbletea messages, so nothing in this package needs a lock.
package chat
