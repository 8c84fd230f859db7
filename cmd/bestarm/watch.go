// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultWatchDebounce coalesces the burst of filesystem events most
// editors emit on a single save.
const defaultWatchDebounce = 250 * time.Millisecond

// ScenarioWatcher invokes a handler when one scenario file changes.
//
// The parent directory is watched rather than the file itself because
// many editors save by renaming a temp file over the original, which
// silently drops a direct file watch.
//
// Thread Safety: Stop may be called from any goroutine, more than once.
type ScenarioWatcher struct {
	path     string
	debounce time.Duration
	handler  func()

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewScenarioWatcher creates a watcher for the given scenario path.
//
// Inputs:
//   - path: Scenario file to watch.
//   - debounce: Quiet period before the handler fires; <= 0 uses the default.
//   - handler: Called after each debounced change.
//
// Outputs:
//   - *ScenarioWatcher: The watcher, not yet started.
//   - error: Non-nil if the handler is missing or the watcher cannot be created.
func NewScenarioWatcher(path string, debounce time.Duration, handler func()) (*ScenarioWatcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch %s: handler is required", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &ScenarioWatcher{
		path:     abs,
		debounce: debounce,
		handler:  handler,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start registers the watch and launches the event loop. The handler
// fires from a background goroutine until Stop or ctx cancellation.
func (w *ScenarioWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go w.loop(ctx)
	return nil
}

// Stop ends the watch and releases the underlying watcher.
func (w *ScenarioWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

// loop debounces raw filesystem events into handler calls.
func (w *ScenarioWatcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.handler()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("scenario watch error", "error", err)
		}
	}
}

// matches reports whether an event is a content change to the watched
// file. Rename covers editors that save over the original.
func (w *ScenarioWatcher) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return abs == w.path
}
