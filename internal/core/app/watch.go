package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"pyscope/internal/core/watcher"
	"pyscope/internal/shared/util"
)

// HandleChanges re-analyses changed modules and forgets deleted ones.
func (a *Analyzer) HandleChanges(ctx context.Context, paths []string) ([]*Report, error) {
	var live []string
	var errs []error
	for _, path := range paths {
		if !IsPythonSource(path) {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := a.Forget(path); err != nil {
				errs = append(errs, err)
			}
			a.logger.Info("module removed", "path", path, "module", a.ModuleName(path))
			continue
		}
		live = append(live, path)
	}
	sort.Strings(live)

	reports, err := a.AnalyzeFiles(ctx, live)
	return reports, errors.Join(append(errs, err)...)
}

// Watch re-analyses Python files under paths as they change until ctx is
// done. onReports receives every batch's reports and joined failures.
func (a *Analyzer) Watch(ctx context.Context, paths []string, onReports func([]*Report, error)) error {
	wc := a.cfg.Watch
	w, err := watcher.NewWatcher(wc.Debounce, wc.ExcludeDirs, wc.ExcludeFiles,
		func(changed []string) {
			a.logger.Info("detected changes", "count", len(changed))
			reports, err := a.HandleChanges(ctx, changed)
			if onReports != nil {
				onReports(reports, err)
			}
		},
		watcher.WithLimiter(util.NewLimiter(wc.RateLimit, wc.Burst)),
		watcher.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	if err := w.Watch(watchRoots(paths)); err != nil {
		w.Close()
		return err
	}
	<-ctx.Done()
	return w.Close()
}

// watchRoots maps file arguments to their directories; fsnotify watches
// directories.
func watchRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var roots []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			p = filepath.Dir(p)
		}
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			roots = append(roots, p)
		}
	}
	return roots
}
