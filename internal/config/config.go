// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for loom.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/loom-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete loom configuration.
type Config struct {
	Version string `toml:"version"`

	// Generation defaults attached to every send.
	DefaultModel    string `toml:"default_model"`
	DefaultProvider string `toml:"default_provider"`
	WorkMode        string `toml:"work_mode"`

	Server ServerConfig `toml:"server"`
	Stream StreamConfig `toml:"stream"`
	Drafts DraftConfig  `toml:"drafts"`
	UI     UIConfig     `toml:"ui"`
}

// ServerConfig points at the session store.
type ServerConfig struct {
	// BaseURL is the session store base URL.
	BaseURL string `toml:"base_url"`
	// RequestTimeoutSecs bounds each store request.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

// StreamConfig points at the agent reply stream.
type StreamConfig struct {
	// BaseURL is the agent stream base URL. Empty means reuse the
	// server base URL.
	BaseURL string `toml:"base_url"`
	// ReplyTimeoutSecs is the stalled-reply watchdog (default: 120).
	ReplyTimeoutSecs int `toml:"reply_timeout_secs"`
}

// ReplyTimeout returns the watchdog duration.
func (s StreamConfig) ReplyTimeout() time.Duration {
	return time.Duration(s.ReplyTimeoutSecs) * time.Second
}

// DraftConfig controls local draft recovery.
type DraftConfig struct {
	// DebounceMs is the keystroke debounce before a draft write.
	DebounceMs int `toml:"debounce_ms"`
	// DatabasePath overrides the draft database location (empty =
	// ~/.loom/drafts.db).
	DatabasePath string `toml:"database_path"`
}

// Debounce returns the draft debounce duration.
func (d DraftConfig) Debounce() time.Duration {
	return time.Duration(d.DebounceMs) * time.Millisecond
}

// UIConfig contains presentation settings, hot-reloadable via Watcher.
type UIConfig struct {
	// Theme is "auto", "dark", or "light".
	Theme string `toml:"theme"`
	// LeftWidth is the default transcript pane width in percent.
	LeftWidth int `toml:"left_width"`
	// RightTab is the panel tab opened by default ("artifact" or
	// "history").
	RightTab string `toml:"right_tab"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:         "1",
		DefaultModel:    "loom-standard",
		DefaultProvider: "loom",
		WorkMode:        "document",
		Server: ServerConfig{
			BaseURL:            "http://127.0.0.1:8787",
			RequestTimeoutSecs: 15,
		},
		Stream: StreamConfig{
			ReplyTimeoutSecs: 120,
		},
		Drafts: DraftConfig{
			DebounceMs: 250,
		},
		UI: UIConfig{
			Theme:     "auto",
			LeftWidth: 60,
			RightTab:  "artifact",
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// ConfigPath returns ~/.loom/config.toml.
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".loom", "config.toml"), nil
}

// Load reads the config file, applies environment overrides, and
// validates the result. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults apply.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies LOOM_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("LOOM_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("LOOM_STREAM_URL"); v != "" {
		c.Stream.BaseURL = v
	}
	if v := os.Getenv("LOOM_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("LOOM_REPLY_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Stream.ReplyTimeoutSecs = secs
		}
	}
	if v := os.Getenv("LOOM_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration and clamps recoverable values.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Server.BaseURL); err != nil {
		return fmt.Errorf("invalid server base_url %q: %w", c.Server.BaseURL, err)
	}
	if c.Stream.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Stream.BaseURL); err != nil {
			return fmt.Errorf("invalid stream base_url %q: %w", c.Stream.BaseURL, err)
		}
	}

	if c.Server.RequestTimeoutSecs <= 0 {
		c.Server.RequestTimeoutSecs = 15
	}
	if c.Stream.ReplyTimeoutSecs <= 0 {
		c.Stream.ReplyTimeoutSecs = 120
	}
	if c.Drafts.DebounceMs <= 0 {
		c.Drafts.DebounceMs = 250
	}
	if c.UI.LeftWidth < 20 || c.UI.LeftWidth > 80 {
		c.UI.LeftWidth = 60
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		c.UI.Theme = "auto"
	}
	switch c.UI.RightTab {
	case "artifact", "history":
	default:
		c.UI.RightTab = "artifact"
	}
	return nil
}

// StreamBaseURL returns the effective agent stream base URL.
func (c *Config) StreamBaseURL() string {
	if c.Stream.BaseURL != "" {
		return c.Stream.BaseURL
	}
	return c.Server.BaseURL
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration atomically to its default path.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration atomically to a specific path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0644)
}
