// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent provides the HTTP streaming client for the loom agent
// backend.
//
// A send is a POST to /api/stream whose response body is an NDJSON
// stream of protocol events, read line by line and forwarded undecoded
// to the transport event channel. Decoding and state transitions happen
// upstream so wire handling stays in one place.
package agent
