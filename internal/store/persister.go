// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store keeps the remote session store eventually consistent
// with local session state.
package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// SAVE STATUS
// =============================================================================

// SaveStatus is the persistence indicator shown in the status bar.
type SaveStatus int

const (
	// StatusSaved means no save is in flight. Failed saves also resolve
	// here so the UI never gets stuck on "saving"; the degraded flag
	// carries the bad news instead.
	StatusSaved SaveStatus = iota

	// StatusSaving means at least one save is in flight.
	StatusSaving
)

// String returns the status label.
func (s SaveStatus) String() string {
	if s == StatusSaving {
		return "saving"
	}
	return "saved"
}

// =============================================================================
// PERSISTER
// =============================================================================

// Persister runs the fire-and-forget save protocol. Every structural
// mutation triggers an independent, idempotent save; a rate limiter
// keeps bursts (rapid resize/tab events) bounded without dropping the
// final state, since each save carries the full current snapshot of the
// changed fields.
type Persister struct {
	mu sync.Mutex

	client    *Client
	sessionID string

	status   SaveStatus
	inFlight int
	degraded bool

	limiter *rate.Limiter

	// onStatus is invoked (outside the lock) whenever status or the
	// degraded flag changes.
	onStatus func(status SaveStatus, degraded bool)
}

// NewPersister creates a persister bound to one session.
func NewPersister(client *Client, sessionID string) *Persister {
	return &Persister{
		client:    client,
		sessionID: sessionID,
		// Sustained 4 saves/s with room for a short burst; resize events
		// arrive much faster than this.
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
	}
}

// SetStatusCallback registers the status listener.
func (p *Persister) SetStatusCallback(fn func(status SaveStatus, degraded bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStatus = fn
}

// SetSessionID rebinds the persister after a session switch.
func (p *Persister) SetSessionID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = id
}

// Status returns the current save status and degraded flag.
func (p *Persister) Status() (SaveStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.degraded
}

// Persist saves a partial session snapshot. It returns immediately; the
// status moves to saving now and resolves to saved when the write
// completes or fails. Failures only raise the degraded flag - the
// in-memory session remains authoritative.
func (p *Persister) Persist(patch SessionPatch) {
	p.mu.Lock()
	p.inFlight++
	p.status = StatusSaving
	id := p.sessionID
	notify := p.onStatus
	degraded := p.degraded
	p.mu.Unlock()

	if notify != nil {
		notify(StatusSaving, degraded)
	}

	go p.save(id, patch)
}

func (p *Persister) save(id string, patch SessionPatch) {
	ctx, cancel := context.WithTimeout(context.Background(), p.client.config.Timeout+5*time.Second)
	defer cancel()

	// Smooth out bursts; last write wins server-side so order within a
	// burst does not matter.
	_ = p.limiter.Wait(ctx)

	err := p.client.PutSession(ctx, id, patch)

	p.mu.Lock()
	p.inFlight--
	if p.inFlight <= 0 {
		p.inFlight = 0
		p.status = StatusSaved
	}
	if err != nil {
		p.degraded = true
	} else if p.inFlight == 0 {
		p.degraded = false
	}
	status := p.status
	degraded := p.degraded
	notify := p.onStatus
	p.mu.Unlock()

	if notify != nil {
		notify(status, degraded)
	}
}
