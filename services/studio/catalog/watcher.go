// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounceWindow batches rapid successive writes (editors save in
// several events) into one reload.
const defaultDebounceWindow = 250 * time.Millisecond

// PackWatcher hot-reloads a template pack directory.
//
// Description:
//
//	Watches one directory (non-recursive; packs are flat) and reloads the
//	registry's pack set after a debounce window of quiet. Because
//	LoadPackDir replaces the whole pack set, file deletions and renames
//	are handled by the same reload path as writes.
//
// Thread Safety: Start and Stop are safe to call from any goroutine; the
// reload itself runs on the watcher's single internal goroutine.
type PackWatcher struct {
	registry *Registry
	dir      string
	debounce time.Duration
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewPackWatcher creates a watcher over dir feeding the given registry.
// A zero debounce selects the default window; a nil logger falls back to
// the registry's logger.
func NewPackWatcher(registry *Registry, dir string, debounce time.Duration) (*PackWatcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounceWindow
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &PackWatcher{
		registry: registry,
		dir:      dir,
		debounce: debounce,
		logger:   registry.logger,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Start performs an initial load and begins watching.
//
// The initial LoadPackDir failure is returned (a missing directory should
// fail fast at startup); later reload failures are logged and the previous
// pack set stays in effect.
func (w *PackWatcher) Start(ctx context.Context) error {
	if err := w.registry.LoadPackDir(w.dir); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

// Stop stops watching. Safe to call more than once.
func (w *PackWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// loop debounces events and triggers reloads.
func (w *PackWatcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	reload := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
		if err := w.registry.LoadPackDir(w.dir); err != nil {
			w.logger.Error("template pack reload failed, keeping previous set",
				"dir", w.dir, "error", err)
		}
	}

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
			if !isPackFile(event.Name) {
				continue
			}
			// Any relevant mutation arms (or re-arms) the debounce timer.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("template pack watcher error", "dir", w.dir, "error", err)
		}
	}
}
