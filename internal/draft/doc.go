// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package draft persists unsent composer text per scope so it survives a
// reload or session switch.
//
// The store is best-effort by contract: every storage failure is
// swallowed and the feature degrades silently rather than breaking
// input. Writes are debounced from keystrokes and flushed unconditionally
// on teardown; a draft is restored exactly once per scope activation and
// cleared only on a confirmed send.
package draft
