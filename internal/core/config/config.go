package config

import (
	"runtime"
	"time"
)

// Config is the on-disk pyscope.toml.
type Config struct {
	Version  int            `toml:"version"`
	Analysis AnalysisConfig `toml:"analysis"`
	Wildcard WildcardConfig `toml:"wildcard"`
	Watch    WatchConfig    `toml:"watch"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Tracing  TracingConfig  `toml:"tracing"`
}

type AnalysisConfig struct {
	// ModuleNameFrom is "stem" (helpers.py -> helpers) or "path", which dots
	// the file path relative to ModuleRoot.
	ModuleNameFrom string   `toml:"module_name_from"`
	ModuleRoot     string   `toml:"module_root"`
	Unresolved     string   `toml:"unresolved"`
	// TieBreak is "none" (several compatible bindings are ambiguous),
	// "innermost" (inner scopes shadow outer ones) or "nearest_preceding".
	TieBreak       string   `toml:"tie_break"`
	BindParameters bool     `toml:"bind_parameters"`
	IgnoreSymbols  []string `toml:"ignore_symbols"`
	Workers        int      `toml:"workers"`
}

type WildcardConfig struct {
	// Modules lists known exports per module for wildcard expansion.
	Modules map[string][]string `toml:"modules"`
	// IndexPath enables the sqlite module index when set.
	IndexPath  string `toml:"index_path"`
	ProjectKey string `toml:"project_key"`
	CacheSize  int    `toml:"cache_size"`
}

type WatchConfig struct {
	Paths        []string      `toml:"paths"`
	Debounce     time.Duration `toml:"debounce"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
	// RateLimit caps re-analysis batches per second; zero disables the cap.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
}

const (
	ModuleNameFromStem = "stem"
	ModuleNameFromPath = "path"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		return 8
	}
	return n
}
