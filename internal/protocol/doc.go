// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the wire-level event types exchanged with the
// loom agent backend.
//
// Inbound events form a closed discriminated union keyed by the "type"
// field. Decode rejects unknown types outright instead of best-effort
// field sniffing; callers count and drop rejected payloads. Outbound
// sends carry a SendContext describing the model, work mode, and artifact
// selection the reply should be generated against.
package protocol
