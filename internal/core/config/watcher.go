package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk. Invalid
// edits are logged and the previous configuration stays in effect.
type Watcher struct {
	path     string
	callback func(*Config)
	logger   *slog.Logger
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewWatcher(path string, logger *slog.Logger, callback func(*Config)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		callback: callback,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins watching. The directory is watched so atomic saves, which
// replace the file, are seen.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()
		w.logger.Debug("watching config file", "path", w.path)

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(reloadDebounce, w.reload)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "error", err)
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed; keeping previous configuration", "path", w.path, "error", err)
		return
	}
	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		w.logger.Warn("config reload failed; keeping previous configuration", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	if w.callback != nil {
		w.callback(cfg)
	}
}
