// PodDock Core
// Copyright (c) 2026 The PodDock Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of PodDock Core.
//
// PodDock Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// PodDock Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with PodDock Core.  If not, see <http://www.gnu.org/licenses/>.

// Package watcher triggers queue syncs when new files land in the sync
// queue directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceWindow coalesces the burst of events a single file copy
// produces into one sync.
const debounceWindow = 500 * time.Millisecond

// Editors and download tools write through temporary names; those must
// never trigger a sync of a half-written file.
var tempSuffixes = []string{".tmp", ".swp", "~", ".part"}

// Watcher watches the queue directory and invokes the sync callback
// when new files finish arriving while a player is connected.
type Watcher struct {
	connected     func() bool
	onQueueChange func() error
	queueDir      string
	dryRun        bool
}

// Option adjusts watcher behavior.
type Option func(*Watcher)

// WithDryRun logs what would be synced without invoking the callback.
func WithDryRun(dryRun bool) Option {
	return func(w *Watcher) { w.dryRun = dryRun }
}

// New creates a watcher over queueDir. connected gates syncing on
// player presence; onQueueChange performs the actual queue sync.
func New(
	queueDir string,
	connected func() bool,
	onQueueChange func() error,
	opts ...Option,
) *Watcher {
	w := &Watcher{
		queueDir:      queueDir,
		connected:     connected,
		onQueueChange: onQueueChange,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the queue directory until ctx is cancelled. The directory
// is created if missing. Sync failures are logged and the watch
// continues; only a broken watch itself is a fatal error.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.queueDir, 0o755); err != nil {
		return fmt.Errorf("failed to create queue dir %s: %w", w.queueDir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create queue watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(w.queueDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.queueDir, err)
	}
	log.Info().Msgf("watching sync queue at %s", w.queueDir)

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.triggers(event) {
				continue
			}
			log.Info().Msgf("detected new queue file %s", filepath.Base(event.Name))
			pending = true
			debounce.Reset(debounceWindow)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("queue watch error")

		case <-debounce.C:
			if pending {
				pending = false
				w.sync()
			}
		}
	}
}

// triggers reports whether an event represents queue content worth
// syncing. Temporary and hidden files are writers' scratch space.
func (w *Watcher) triggers(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return false
	}
	if shouldIgnore(event.Name) {
		log.Debug().Msgf("ignoring temporary file %s", event.Name)
		return false
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return false
	}
	return true
}

func (w *Watcher) sync() {
	if w.connected != nil && !w.connected() {
		log.Info().Msg("player not connected, queue will sync on next attach")
		return
	}
	if w.dryRun {
		log.Info().Msg("dry-run: would sync queue")
		return
	}
	if w.onQueueChange == nil {
		return
	}
	if err := w.onQueueChange(); err != nil {
		log.Error().Err(err).Msg("queue sync failed")
		return
	}
	log.Info().Msg("queue sync finished")
}

// shouldIgnore reports whether a path names a hidden or temporary file.
func shouldIgnore(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
