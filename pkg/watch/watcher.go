// Package watch re-triggers analysis when source files change. The watcher
// batches filesystem events per debounce window so a save storm from an
// editor or a formatter produces one callback, not dozens.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/whynotshrutz/helix/pkg/parser"
)

// DefaultDebounce is the quiet period required before a batch fires.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// ExcludeDirs lists directory names that are never watched.
	ExcludeDirs []string
	// Debounce is the quiet period per file. Values at or below zero fall
	// back to DefaultDebounce.
	Debounce time.Duration
}

// Watcher monitors a directory tree for source file changes.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	root        string
	excludeDirs []string
	debounce    time.Duration
	callback    func(paths []string)

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher over root. Call Start to begin receiving events.
func New(root string, opts Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher:   fsWatcher,
		root:        root,
		excludeDirs: opts.ExcludeDirs,
		debounce:    debounce,
		pending:     make(map[string]time.Time),
	}, nil
}

// OnChange sets the function invoked with each settled batch of root-relative
// paths. Must be called before Start.
func (w *Watcher) OnChange(cb func(paths []string)) {
	w.callback = cb
}

// Start watches the tree until the context is cancelled. Directories created
// after Start are picked up from their create events.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently under watch.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}

func (w *Watcher) excluded(name string) bool {
	for _, dir := range w.excludeDirs {
		if name == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// New directories join the watch set so nested changes keep arriving.
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if !w.excluded(fi.Name()) {
				_ = w.fsWatcher.Add(event.Name)
			}
			return
		}
	}

	if parser.DetectLanguage(event.Name) == parser.LangUnknown {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// processDebounced flushes settled batches every 100ms.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if len(ready) == 0 || w.callback == nil {
		return
	}

	for i, path := range ready {
		if rel, err := filepath.Rel(w.root, path); err == nil {
			ready[i] = filepath.ToSlash(rel)
		}
	}
	sort.Strings(ready)
	w.callback(ready)
}
