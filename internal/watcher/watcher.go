// Package watcher turns file system events into document change
// notifications for the vault index.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/aadityaincode/Deep-Notes/internal/vault"
)

// Watcher watches the vault root and emits vault.Change events to its
// subscribers. It implements vault.Notifier: the core only sees
// generic document-changed events, never fsnotify.
type Watcher struct {
	vault *vault.Vault

	// debounce holds pending file events to batch process
	debounce     map[string]fsnotify.Op
	debounceMu   sync.Mutex
	debounceTime time.Duration

	subscribers   []func(vault.Change)
	subscribersMu sync.Mutex
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceTime sets the debounce duration for batching events.
func WithDebounceTime(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceTime = d
	}
}

// New creates a watcher over the given vault.
func New(v *vault.Vault, opts ...Option) *Watcher {
	w := &Watcher{
		vault:        v,
		debounce:     make(map[string]fsnotify.Op),
		debounceTime: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Subscribe registers fn to be called for each document change.
func (w *Watcher) Subscribe(fn func(vault.Change)) {
	w.subscribersMu.Lock()
	defer w.subscribersMu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

var _ vault.Notifier = (*Watcher)(nil)

// Start begins watching for file changes. Blocks until the context is
// cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addDirectories(watcher); err != nil {
		return err
	}

	log.Info("Watching vault for changes", "root", w.vault.Root())

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, watcher)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// addDirectories recursively adds all vault directories to the watcher.
func (w *Watcher) addDirectories(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(w.vault.Root(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != w.vault.Root() {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			log.Debug("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// handleEvent queues a single file system event for debounced delivery.
func (w *Watcher) handleEvent(event fsnotify.Event, watcher *fsnotify.Watcher) {
	path := event.Name

	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	// New directories join the watch set
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			watcher.Add(path)
			log.Debug("Added directory to watch", "path", path)
			return
		}
	}

	// Removes and renames cannot be stat'd, but the path alone decides
	// whether the file was ever indexable. Everything else that is a
	// directory is not a document event.
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
	}
	if !w.vault.Contains(path) {
		return
	}

	w.debounceMu.Lock()
	w.debounce[path] |= event.Op
	w.debounceMu.Unlock()
}

// processDebounced delivers debounced events periodically.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushDebounced()
		}
	}
}

// flushDebounced turns pending events into change notifications.
func (w *Watcher) flushDebounced() {
	w.debounceMu.Lock()
	if len(w.debounce) == 0 {
		w.debounceMu.Unlock()
		return
	}
	events := w.debounce
	w.debounce = make(map[string]fsnotify.Op)
	w.debounceMu.Unlock()

	for path, op := range events {
		change := vault.Change{Path: path, Kind: vault.ChangeWrite}
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			change.Kind = vault.ChangeRemove
		}
		w.notify(change)
	}
}

// notify fans a change out to every subscriber.
func (w *Watcher) notify(change vault.Change) {
	w.subscribersMu.Lock()
	subs := make([]func(vault.Change), len(w.subscribers))
	copy(subs, w.subscribers)
	w.subscribersMu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}
