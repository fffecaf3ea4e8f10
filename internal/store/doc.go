// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store keeps the remote session store eventually consistent
// with local session state.
//
// The Client wraps the REST surface (GET/PUT/POST /api/sessions); the
// Persister layers the save protocol on top: fire-and-forget writes, a
// saving→saved status that always resolves, and a degraded indicator
// instead of blocking errors. In-memory state stays authoritative; a
// failed save is reported, never rolled back.
package store
