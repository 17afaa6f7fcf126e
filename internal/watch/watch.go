// Package watch reports corpus files dropped into a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// DefaultPatterns match every TEI and JSON file below the root.
var DefaultPatterns = []string{"**/*.xml", "**/*.json"}

// Watcher calls onFile once a matching file under root has stopped changing.
type Watcher struct {
	root     string
	patterns []string
	onFile   func(path string)
	log      *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	fsw    *fsnotify.Watcher
	ready  chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New returns a Watcher over root. patterns are doublestar globs relative to
// root; nil means DefaultPatterns.
func New(root string, patterns []string, onFile func(path string), log *slog.Logger, opts ...Option) (*Watcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}
	w := &Watcher{
		root:     filepath.Clean(root),
		patterns: patterns,
		onFile:   onFile,
		log:      log,
		debounce: defaultDebounce,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Match reports whether path, absolute or relative to the root, matches a
// pattern.
func (w *Watcher) Match(path string) bool {
	rel := path
	if r, err := filepath.Rel(w.root, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	rel = filepath.ToSlash(rel)
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Sync reports every matching file already under the root.
func (w *Watcher) Sync() error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && w.Match(path) {
			w.onFile(path)
		}
		return nil
	})
}

// Run watches the tree until ctx is cancelled. New subdirectories are
// watched as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()
	defer w.stop()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.log.Info("watching", "root", w.root, "patterns", w.patterns)
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	w.log.Debug("watcher event", "op", ev.Op.String(), "path", ev.Name)
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch new directory failed", "path", ev.Name, "error", err)
			}
			return
		}
		if w.Match(ev.Name) {
			w.schedule(ev.Name)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw == nil {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.onFile(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
}
