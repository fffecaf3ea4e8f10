// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package draft persists unsent composer text per scope so it survives a
// reload or session switch.
package draft

import "errors"

// =============================================================================
// IN-MEMORY KV (TESTS)
// =============================================================================

// ErrStorageUnavailable simulates a broken backing store.
var ErrStorageUnavailable = errors.New("storage unavailable")

// MemoryKV is a map-backed KV for tests.
type MemoryKV struct {
	// Fail makes every operation error, for degradation tests.
	Fail bool

	data map[string]string
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get returns the value for key, reporting presence.
func (m *MemoryKV) Get(key string) (string, bool, error) {
	if m.Fail {
		return "", false, ErrStorageUnavailable
	}
	value, ok := m.data[key]
	return value, ok, nil
}

// Set writes or replaces the value for key.
func (m *MemoryKV) Set(key, value string) error {
	if m.Fail {
		return ErrStorageUnavailable
	}
	m.data[key] = value
	return nil
}

// Delete removes key.
func (m *MemoryKV) Delete(key string) error {
	if m.Fail {
		return ErrStorageUnavailable
	}
	delete(m.data, key)
	return nil
}

// Close is a no-op.
func (m *MemoryKV) Close() error {
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryKV) Len() int {
	return len(m.data)
}
