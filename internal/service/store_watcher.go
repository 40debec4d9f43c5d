package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ─────────────────────────────────────────────────────────────
// StoreWatcher — reloads the Store when another process writes
// ─────────────────────────────────────────────────────────────
//
// The standalone MCP server and the desktop app share one SQLite file.
// The watcher listens for writes to that file (and its WAL) and, after a
// quiet period, reloads the Store if the slots no longer hold what this
// process last read or wrote. Its own writes therefore never reload.

const (
	defaultReloadDebounce = 500 * time.Millisecond
	reloadTimeout         = 10 * time.Second
)

// StoreWatcherOptions tunes the watcher. Zero values pick the defaults.
type StoreWatcherOptions struct {
	Debounce time.Duration
}

type StoreWatcher struct {
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	reloads int
}

// NewStoreWatcher creates a watcher. It does nothing until Start.
func NewStoreWatcher(opts StoreWatcherOptions) *StoreWatcher {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultReloadDebounce
	}
	return &StoreWatcher{debounce: opts.Debounce}
}

// Reloads returns how many reloads the watcher has triggered.
func (w *StoreWatcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Start watches the given files and reloads store when one of them changes.
func (w *StoreWatcher) Start(ctx context.Context, store *Store, files ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return fmt.Errorf("watch %q: %w", f, err)
		}
		watched[abs] = true
		// fsnotify watches dirs for file events
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return fmt.Errorf("watch dir %q: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(watchCtx, store, watched)
	logrus.WithField("files", len(watched)).Info("store watcher: started")
	return nil
}

func (w *StoreWatcher) loop(ctx context.Context, store *Store, watched map[string]bool) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			if !watched[abs] {
				continue
			}
			w.schedule(ctx, store)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("store watcher: error")
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *StoreWatcher) schedule(ctx context.Context, store *Store) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.reload(ctx, store) })
}

func (w *StoreWatcher) reload(ctx context.Context, store *Store) {
	if ctx.Err() != nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	changed, err := store.ReloadIfChanged(rctx)
	if err != nil {
		logrus.WithError(err).Error("store watcher: reload failed")
		return
	}
	if !changed {
		return
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	logrus.Debug("store watcher: reloaded after external write")
}

// Stop ends the watch loop. Safe to call when Start never ran.
func (w *StoreWatcher) Stop() {
	w.mu.Lock()
	cancel, watcher, done := w.cancel, w.watcher, w.done
	if w.timer != nil {
		w.timer.Stop()
	}
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	watcher.Close()
	<-done
}
