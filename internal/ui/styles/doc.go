// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for loom TUI.
//
// A Theme bundles every lipgloss style the chat view uses, built once
// for the detected terminal capability and dark/light preference.
package styles
