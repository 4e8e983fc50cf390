package app

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"pyscope/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRoots(t *testing.T) {
	dir := t.TempDir()
	file := writeModule(t, dir, "a.py", "")
	assert.Equal(t, []string{dir}, watchRoots([]string{dir, file}))
}

func TestWatch_ReanalysesChangedModules(t *testing.T) {
	dir := t.TempDir()
	a := newAnalyzer(t, func(cfg *config.Config) {
		cfg.Watch.Debounce = 50 * time.Millisecond
	})

	var mu sync.Mutex
	var seen []string
	got := make(chan struct{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, []string{dir}, func(reports []*Report, err error) {
			assert.NoError(t, err)
			mu.Lock()
			for _, r := range reports {
				seen = append(seen, r.Edges()...)
			}
			mu.Unlock()
			got <- struct{}{}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job.py"), []byte("import os\nos.getpid()\n"), 0o644))

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		found := slices.Contains(seen, "job -> os.getpid")
		mu.Unlock()
		if found {
			break
		}
		select {
		case <-got:
		case <-deadline:
			t.Fatalf("no report for job.py, saw %v", seen)
		}
	}

	cancel()
	require.NoError(t, <-done)
}
