// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// DIRECTORY WATCHER
// =============================================================================

// DefaultDebounce coalesces the burst of write events a download produces.
const DefaultDebounce = 250 * time.Millisecond

// Watch watches the models directory and sends on the returned channel
// whenever files appear, disappear or change. Bursts are coalesced with
// debounce (DefaultDebounce when zero). The channel has room for one
// pending notification and is closed when ctx is done.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) (<-chan struct{}, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	out := make(chan struct{}, 1)
	go s.watchLoop(ctx, w, debounce, out)
	return out, nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, out chan<- struct{}) {
	defer close(out)
	defer w.Close()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			pending = true

		case <-timer.C:
			pending = false
			select {
			case out <- struct{}{}:
			default:
				// A notification is already waiting; the reader will rescan anyway.
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("STORE_WATCH_ERROR | dir=%s err=%v", s.dir, err)
		}
	}
}
