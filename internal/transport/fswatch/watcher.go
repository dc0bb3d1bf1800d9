// Package fswatch reports settled file changes under a directory tree.
package fswatch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Defaults.
const (
	DefaultDebounce = 500 * time.Millisecond
	eventBuffer     = 256
)

// DefaultExtensions are the file types the knowledge base can ingest.
var DefaultExtensions = []string{".md", ".txt", ".html", ".htm"}

var defaultExcludes = []string{".git", "node_modules", "vendor"}

// Config selects which files are reported.
type Config struct {
	Extensions []string
	Excludes   []string
	Debounce   time.Duration
}

// Watcher emits the path of every created or modified file once it has
// been quiet for the debounce delay.
type Watcher struct {
	root       string
	fsw        *fsnotify.Watcher
	extensions map[string]struct{}
	excludes   map[string]struct{}
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool

	events chan string
}

// New creates a watcher rooted at dir. Call Run to start it.
func New(dir string, cfg Config, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if len(cfg.Excludes) == 0 {
		cfg.Excludes = defaultExcludes
	}

	w := &Watcher{
		root:       dir,
		fsw:        fsw,
		extensions: make(map[string]struct{}, len(cfg.Extensions)),
		excludes:   make(map[string]struct{}, len(cfg.Excludes)),
		debounce:   cfg.Debounce,
		logger:     logger,
		pending:    make(map[string]*time.Timer),
		events:     make(chan string, eventBuffer),
	}
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.extensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, d := range cfg.Excludes {
		w.excludes[d] = struct{}{}
	}
	return w, nil
}

// Events returns settled file paths. The channel closes when Run returns.
func (w *Watcher) Events() <-chan string { return w.events }

// Matches reports whether path has a watched extension.
func (w *Watcher) Matches(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.stopTimers()
	defer func() { _ = w.fsw.Close() }()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	w.logger.Info("Watching for changes", zap.String("dir", w.root), zap.Duration("debounce", w.debounce))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) && !w.excluded(ev.Name) {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
		}
		return
	}
	if !w.Matches(ev.Name) {
		return
	}
	w.schedule(ev.Name)
}

// schedule restarts the path's debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.pending, path)
		if w.stopped {
			return
		}
		select {
		case w.events <- path:
		default:
			w.logger.Warn("Dropped file event, buffer full", zap.String("path", path))
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
}

func (w *Watcher) excluded(path string) bool {
	_, ok := w.excludes[filepath.Base(path)]
	return ok
}

func (w *Watcher) addRecursive(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add watches under %s: %w", dir, err)
	}
	return nil
}
