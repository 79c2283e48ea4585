// Package observer watches the config file for edits so the console can
// apply changes without a restart.
package observer

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigChangeCallback is called after the config file changed on disk
type ConfigChangeCallback func(path string)

// ConfigWatcher monitors one config file, debouncing rapid editor writes
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	callback ConfigChangeCallback
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending bool

	cancel context.CancelFunc
}

// NewConfigWatcher creates a watcher for the given config path
func NewConfigWatcher(path string, callback ConfigChangeCallback) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &ConfigWatcher{
		watcher:  watcher,
		path:     path,
		callback: callback,
		debounce: 500 * time.Millisecond,
	}, nil
}

// SetDebounce sets the debounce duration for batching writes
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Start begins watching for file changes
func (w *ConfigWatcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// Stop stops watching for file changes. A pending debounce is dropped.
func (w *ConfigWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.watcher.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = false
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *ConfigWatcher) flush() {
	w.mu.Lock()
	fire := w.pending
	w.pending = false
	w.mu.Unlock()

	if fire && w.callback != nil {
		w.callback(w.path)
	}
}
