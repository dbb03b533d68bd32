// Package watcher re-ingests the corpus when its source files change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/extract"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches the corpus source, a single file or a directory tree, and calls
// onChange once per burst of changes.
type Watcher struct {
	source     string
	isDir      bool
	extensions []string
	onChange   func()
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	timer      *time.Timer
	done       chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions limits directory events to files with these extensions (empty = all).
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// NewWatcher creates a watcher for source. onChange runs on its own goroutine.
func NewWatcher(source string, onChange func(), opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		source:   filepath.Clean(abs),
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	info, err := os.Stat(w.source)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.isDir = info.IsDir()

	// A single file is watched through its directory so that editors replacing it are seen.
	if w.isDir {
		err = w.addTreeLocked(w.source)
	} else {
		err = w.watcher.Add(filepath.Dir(w.source))
	}
	if err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.mu.Unlock()
		return err
	}
	w.started = true
	w.logger.Debug("watcher starting",
		zap.String("source", w.source),
		zap.Bool("dir", w.isDir),
		zap.Strings("extensions", w.extensions))
	w.mu.Unlock()

	go w.run(ctx, watcher.Events, watcher.Errors)
	return nil
}

func (w *Watcher) addTreeLocked(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errCh:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	path := filepath.Clean(ev.Name)

	if !w.isDir {
		if path == w.source {
			w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
			w.trigger()
		}
		return
	}

	if !inDir(w.source, path) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				if err := w.addTreeLocked(path); err != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
			}
			w.mu.Unlock()
			w.trigger()
			return
		}
	}
	if matchExtension(path, w.extensions) {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
		w.trigger()
	}
}

// trigger (re)arms the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		running := w.started
		w.mu.Unlock()
		if running && w.onChange != nil {
			w.onChange()
		}
	})
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// matchExtension reports whether path should trigger a reload. No extensions means every file.
func matchExtension(path string, extensions []string) bool {
	return len(extensions) == 0 || extract.Supports(filepath.Ext(path), extensions)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
