// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// DefaultWatchDebounce is how long the config file must be quiet before a
// reload. Editors often write a file in several steps.
const DefaultWatchDebounce = 250 * time.Millisecond

// ReloadFunc receives the freshly loaded config, or the error that stopped
// it from loading. cfg may be non-nil alongside err (see Load).
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads the configuration whenever config.toml or config.json
// changes in the config directory.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload ReloadFunc
	load     func() (*Config, error)

	mu      sync.Mutex
	pending time.Time // zero when nothing is pending

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher for the config directory. The directory is
// created if missing so that a first config file written later is seen.
func NewWatcher(onReload ReloadFunc) (*Watcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return newWatcher(dir, DefaultWatchDebounce, onReload, Load)
}

func newWatcher(dir string, debounce time.Duration, onReload ReloadFunc, load func() (*Config, error)) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		dir:      dir,
		watcher:  fsw,
		debounce: debounce,
		onReload: onReload,
		load:     load,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Start begins processing events in the background.
func (w *Watcher) Start() {
	go w.processEvents()
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

// Watch runs a config watcher until ctx is cancelled.
func Watch(ctx context.Context, onReload ReloadFunc) error {
	w, err := NewWatcher(onReload)
	if err != nil {
		return err
	}
	w.Start()
	<-ctx.Done()
	return w.Close()
}

func isConfigFile(name string) bool {
	base := filepath.Base(name)
	return base == "config.toml" || base == "config.json"
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Rename == fsnotify.Rename ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onReload != nil {
				w.onReload(nil, fmt.Errorf("config watcher: %w", err))
			}

		case <-ticker.C:
			w.mu.Lock()
			ready := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if ready {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if ready && w.onReload != nil {
				w.onReload(w.load())
			}
		}
	}
}
