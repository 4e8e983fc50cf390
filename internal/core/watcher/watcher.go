// Package watcher reports batches of changed Python files under a set of
// directory trees.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pyscope/internal/shared/observability"
	"pyscope/internal/shared/util"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

const minRetry = 50 * time.Millisecond

type Option func(*Watcher)

// WithLimiter caps how often change batches are delivered. Throttled batches
// keep accumulating and are retried later.
func WithLimiter(l *util.Limiter) Option {
	return func(w *Watcher) { w.limiter = l }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithExtensions replaces the watched file extensions (default ".py").
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.extFilters = make(map[string]bool, len(exts))
		for _, ext := range exts {
			if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
				w.extFilters[ext] = true
			}
		}
	}
}

type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	limiter      *util.Limiter
	logger       *slog.Logger
	onChange     func([]string)
	callbackMu   sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
	closed    bool
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string), opts ...Option) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs, err := compile(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compile(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		extFilters:   map[string]bool{".py": true},
		logger:       slog.Default(),
		onChange:     onChange,
		pending:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch registers every directory under paths and starts delivering events.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}

	w.pending[path] = time.Now()
	w.resetTimerLocked(w.debounce)
}

func (w *Watcher) resetTimerLocked(d time.Duration) {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	if !w.limiter.Allow(1) {
		observability.WatcherBatchesThrottled.Inc()
		w.resetTimerLocked(max(w.debounce, minRetry))
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if len(w.extFilters) > 0 && !w.extFilters[filepath.Ext(base)] {
		return true
	}
	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}
