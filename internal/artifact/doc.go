// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package artifact implements the versioned side document produced and
// edited alongside the chat.
//
// Every accepted mutation bumps the artifact version by exactly one (or
// to the patch-specified version) and appends exactly one entry to the
// append-only history list. The Synchronizer owns the session's artifact
// set and is the single writer: patches from completed turns and manual
// user edits both flow through it, serialized in event order, so version
// arithmetic never races against a stale read on this side.
package artifact
