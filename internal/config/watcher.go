// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for loom.
package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads the config file when it changes on disk so UI settings
// apply without a restart. Reload failures keep the previous config; a
// half-written file must never take the client down.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	lastEvt time.Time
	onLoad  func(*Config)

	done chan struct{}
}

// NewWatcher creates a watcher for the config file at path. onLoad is
// called with each successfully reloaded config.
func NewWatcher(path string, onLoad func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors typically replace the file via
	// rename, which drops a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		watcher:  fw,
		debounce: 200 * time.Millisecond,
		onLoad:   onLoad,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors degrade to no live reload.
		}
	}
}

// reload re-parses the file, collapsing editor write bursts.
func (w *Watcher) reload() {
	w.mu.Lock()
	if time.Since(w.lastEvt) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastEvt = time.Now()
	onLoad := w.onLoad
	w.mu.Unlock()

	cfg, err := LoadFrom(w.path)
	if err != nil {
		return
	}
	if onLoad != nil {
		onLoad(cfg)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
