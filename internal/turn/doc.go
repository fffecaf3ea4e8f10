// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn implements the protocol state machine for one
// user-message-to-assistant-reply cycle.
//
// The machine moves between Idle, AwaitingReply, and Streaming strictly
// in response to inbound protocol events, with a single exception: the
// reply watchdog, which forces the machine back to Idle when no terminal
// event arrives within the reply timeout. Exactly one turn may be
// outstanding at a time; a send attempted while a turn is in flight is
// rejected, never queued.
//
// Every method takes the current time as a parameter, so the whole
// machine is a deterministic function of its inputs and trivially
// testable without real timers.
package turn
