// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package draft persists unsent composer text per scope so it survives a
// reload or session switch.
package draft

import (
	"time"
)

// DefaultNamespace prefixes every storage key.
const DefaultNamespace = "loom-draft"

// DefaultDebounce is how long after the last keystroke a draft is
// written out.
const DefaultDebounce = 250 * time.Millisecond

// =============================================================================
// KV PORT
// =============================================================================

// KV is the page-local key/value surface drafts are stored in. Values
// are plain strings.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// =============================================================================
// STORE
// =============================================================================

// Store is the per-scope draft store. The input controller is its sole
// writer. Not safe for concurrent use; all calls happen inside the
// Update loop.
type Store struct {
	kv       KV
	ns       string
	debounce time.Duration

	// pending holds text written but not yet flushed, keyed by scope.
	pending   map[string]string
	pendingAt map[string]time.Time

	// restored guards the restore-once-per-activation rule.
	restored map[string]bool
}

// NewStore creates a draft store with default namespace and debounce.
func NewStore(kv KV) *Store {
	return NewStoreWithConfig(kv, DefaultNamespace, DefaultDebounce)
}

// NewStoreWithConfig creates a draft store with custom settings.
func NewStoreWithConfig(kv KV, ns string, debounce time.Duration) *Store {
	if ns == "" {
		ns = DefaultNamespace
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Store{
		kv:        kv,
		ns:        ns,
		debounce:  debounce,
		pending:   make(map[string]string),
		pendingAt: make(map[string]time.Time),
		restored:  make(map[string]bool),
	}
}

func (s *Store) key(scope string) string {
	return s.ns + ":" + scope
}

// =============================================================================
// WRITE / FLUSH
// =============================================================================

// Write records a keystroke's worth of draft text. The value is held in
// memory and written out once the debounce window elapses without
// further writes.
func (s *Store) Write(scope, text string, now time.Time) {
	s.pending[scope] = text
	s.pendingAt[scope] = now
}

// FlushDue writes out every scope whose debounce window has elapsed.
// Callers drive it from a periodic tick.
func (s *Store) FlushDue(now time.Time) {
	for scope, at := range s.pendingAt {
		if now.Sub(at) >= s.debounce {
			s.flushScope(scope)
		}
	}
}

// Flush writes out all pending scopes regardless of the debounce window.
// Called on teardown so the latest keystroke is never lost to a missed
// debounce tick.
func (s *Store) Flush() {
	for scope := range s.pending {
		s.flushScope(scope)
	}
}

func (s *Store) flushScope(scope string) {
	text, ok := s.pending[scope]
	if !ok {
		return
	}
	delete(s.pending, scope)
	delete(s.pendingAt, scope)

	// Best-effort: storage failures degrade silently.
	_ = s.kv.Set(s.key(scope), text)
}

// =============================================================================
// READ / RESTORE
// =============================================================================

// Read returns the current draft text for a scope: unflushed text if any
// is pending, else whatever storage holds.
func (s *Store) Read(scope string) string {
	if text, ok := s.pending[scope]; ok {
		return text
	}
	text, ok, err := s.kv.Get(s.key(scope))
	if err != nil || !ok {
		return ""
	}
	return text
}

// Restore returns the stored draft exactly once per scope activation.
// Subsequent calls return false until Deactivate, so a draft the user
// deliberately cleared is not re-applied.
func (s *Store) Restore(scope string) (string, bool) {
	if s.restored[scope] {
		return "", false
	}
	s.restored[scope] = true

	text := s.Read(scope)
	if text == "" {
		return "", false
	}
	return text, true
}

// Deactivate ends a scope activation (session switch, view teardown),
// flushing pending text and re-arming restore for the next activation.
func (s *Store) Deactivate(scope string) {
	s.flushScope(scope)
	delete(s.restored, scope)
}

// =============================================================================
// CLEAR
// =============================================================================

// Clear removes a scope's draft entirely. Called only on a confirmed
// send (explicit success) or an explicit user clear.
func (s *Store) Clear(scope string) {
	delete(s.pending, scope)
	delete(s.pendingAt, scope)
	_ = s.kv.Delete(s.key(scope))
}

// Close flushes all pending drafts and releases the backing store.
func (s *Store) Close() error {
	s.Flush()
	return s.kv.Close()
}
