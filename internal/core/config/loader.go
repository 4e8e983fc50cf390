package config

import (
	"os"
	"strings"
	"time"

	domainerrors "pyscope/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeNotFound, "read config"),
			domainerrors.CtxPath, path)
	}
	return Parse(string(data))
}

// Parse decodes a TOML document, applies defaults and validates the result.
func Parse(data string) (*Config, error) {
	var cfg Config
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "decode config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "unknown config key "+undecoded[0].String())
	}

	applyDefaults(&cfg)
	normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Analysis.ModuleNameFrom) == "" {
		cfg.Analysis.ModuleNameFrom = ModuleNameFromStem
	}
	if strings.TrimSpace(cfg.Analysis.Unresolved) == "" {
		cfg.Analysis.Unresolved = "skip"
	}
	if strings.TrimSpace(cfg.Analysis.TieBreak) == "" {
		cfg.Analysis.TieBreak = "none"
	}
	if cfg.Analysis.Workers == 0 {
		cfg.Analysis.Workers = defaultWorkers()
	}

	if cfg.Wildcard.CacheSize == 0 {
		cfg.Wildcard.CacheSize = 512
	}
	if strings.TrimSpace(cfg.Wildcard.ProjectKey) == "" {
		cfg.Wildcard.ProjectKey = "default"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = []string{".git", "__pycache__", ".venv", "venv", "node_modules", ".tox"}
	}
	if cfg.Watch.ExcludeFiles == nil {
		cfg.Watch.ExcludeFiles = []string{"*.pyc", ".#*"}
	}
	if cfg.Watch.RateLimit > 0 && cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = 1
	}

	if strings.TrimSpace(cfg.Metrics.Address) == "" {
		cfg.Metrics.Address = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		cfg.Tracing.Endpoint = "localhost:4317"
	}
	if strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		cfg.Tracing.ServiceName = "pyscope"
	}
}

func normalize(cfg *Config) {
	cfg.Analysis.ModuleNameFrom = strings.ToLower(strings.TrimSpace(cfg.Analysis.ModuleNameFrom))
	cfg.Analysis.Unresolved = strings.ToLower(strings.TrimSpace(cfg.Analysis.Unresolved))
	cfg.Analysis.TieBreak = strings.ToLower(strings.TrimSpace(cfg.Analysis.TieBreak))
	cfg.Analysis.ModuleRoot = strings.TrimSpace(cfg.Analysis.ModuleRoot)
	cfg.Analysis.IgnoreSymbols = trimAll(cfg.Analysis.IgnoreSymbols)
	cfg.Wildcard.IndexPath = strings.TrimSpace(cfg.Wildcard.IndexPath)
	cfg.Watch.Paths = trimAll(cfg.Watch.Paths)
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
