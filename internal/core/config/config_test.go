package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	domainerrors "pyscope/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pyscope.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[analysis]
module_name_from = "PATH"
module_root = "./src"
unresolved = "external"
tie_break = "nearest_preceding"
bind_parameters = true
ignore_symbols = ["print", "  len ", "__*__"]
workers = 3

[wildcard]
index_path = "data/modules.db"
project_key = "shop"
cache_size = 64

[wildcard.modules]
"os.path" = ["join", "exists"]

[watch]
paths = ["./src"]
debounce = "1s"
exclude_dirs = [".git"]
rate_limit = 2.5

[metrics]
enabled = true
address = "127.0.0.1:9000"

[tracing]
enabled = true
endpoint = "collector:4317"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, ModuleNameFromPath, cfg.Analysis.ModuleNameFrom)
	assert.Equal(t, "./src", cfg.Analysis.ModuleRoot)
	assert.Equal(t, "external", cfg.Analysis.Unresolved)
	assert.Equal(t, "nearest_preceding", cfg.Analysis.TieBreak)
	assert.True(t, cfg.Analysis.BindParameters)
	assert.Equal(t, []string{"print", "len", "__*__"}, cfg.Analysis.IgnoreSymbols)
	assert.Equal(t, 3, cfg.Analysis.Workers)

	assert.Equal(t, "data/modules.db", cfg.Wildcard.IndexPath)
	assert.Equal(t, "shop", cfg.Wildcard.ProjectKey)
	assert.Equal(t, 64, cfg.Wildcard.CacheSize)
	assert.Equal(t, []string{"join", "exists"}, cfg.Wildcard.Modules["os.path"])

	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{".git"}, cfg.Watch.ExcludeDirs)
	assert.Equal(t, []string{"*.pyc", ".#*"}, cfg.Watch.ExcludeFiles)
	assert.Equal(t, 2.5, cfg.Watch.RateLimit)
	assert.Equal(t, 1, cfg.Watch.Burst)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Metrics.Address)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, "pyscope", cfg.Tracing.ServiceName)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, ModuleNameFromStem, cfg.Analysis.ModuleNameFrom)
	assert.Equal(t, "skip", cfg.Analysis.Unresolved)
	assert.Equal(t, "none", cfg.Analysis.TieBreak)
	assert.GreaterOrEqual(t, cfg.Analysis.Workers, 1)
	assert.Equal(t, 512, cfg.Wildcard.CacheSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", "[analysis\n", "decode config"},
		{"unknown key", "[analysis]\ncolour = \"blue\"\n", "unknown config key analysis.colour"},
		{"version", "version = 3\n", "unsupported config version 3"},
		{"module name source", "[analysis]\nmodule_name_from = \"hash\"\n", "analysis.module_name_from"},
		{"path without root", "[analysis]\nmodule_name_from = \"path\"\n", "analysis.module_root"},
		{"unresolved", "[analysis]\nunresolved = \"guess\"\n", "analysis.unresolved"},
		{"tie break", "[analysis]\ntie_break = \"random\"\n", "analysis.tie_break"},
		{"ignore glob", "[analysis]\nignore_symbols = [\"[unclosed\"]\n", "analysis.ignore_symbols"},
		{"workers", "[analysis]\nworkers = -2\n", "analysis.workers"},
		{"cache size", "[wildcard]\ncache_size = -1\n", "wildcard.cache_size"},
		{"module name", "[wildcard.modules]\n\"a b\" = [\"x\"]\n", "wildcard.modules"},
		{"rate limit", "[watch]\nrate_limit = -1.0\n", "watch.rate_limit"},
		{"exclude glob", "[watch]\nexclude_dirs = [\"[unclosed\"]\n", "watch exclude pattern"},
		{"metrics address", "[metrics]\nenabled = true\naddress = \"nope\"\n", "metrics.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			require.Error(t, err)
			assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PYSCOPE_ANALYSIS_TIE_BREAK", "NEAREST_PRECEDING")
	t.Setenv("PYSCOPE_ANALYSIS_IGNORE_SYMBOLS", "print, len")
	t.Setenv("PYSCOPE_ANALYSIS_WORKERS", "not-a-number")
	t.Setenv("PYSCOPE_WATCH_DEBOUNCE", "2s")
	t.Setenv("PYSCOPE_METRICS_ENABLED", "true")
	t.Setenv("PYSCOPE_WILDCARD_CACHE_SIZE", "16")

	cfg := DefaultConfig()
	workers := cfg.Analysis.Workers
	ApplyEnvOverrides(cfg)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "nearest_preceding", cfg.Analysis.TieBreak)
	assert.Equal(t, []string{"print", "len"}, cfg.Analysis.IgnoreSymbols)
	assert.Equal(t, workers, cfg.Analysis.Workers, "invalid override is ignored")
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 16, cfg.Wildcard.CacheSize)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "[analysis]\ntie_break = \"none\"\n")

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, nil, func(cfg *Config) { reloaded <- cfg })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[analysis]\ntie_break = \"nearest_preceding\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "nearest_preceding", cfg.Analysis.TieBreak)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcher_KeepsPreviousOnInvalidEdit(t *testing.T) {
	path := writeConfig(t, "")

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, nil, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[analysis]\ntie_break = \"random\"\n"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
}
