package config

import (
	"fmt"
	"net"
	"strings"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/resolver"

	"github.com/gobwas/glob"
)

// Validate checks every section and returns the first problem found, coded
// VALIDATION_ERROR.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateAnalysis,
		validateWildcard,
		validateWatch,
		validateMetrics,
		validateTracing,
	} {
		if err := check(cfg); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	a := cfg.Analysis
	switch a.ModuleNameFrom {
	case ModuleNameFromStem:
	case ModuleNameFromPath:
		if a.ModuleRoot == "" {
			return fmt.Errorf("analysis.module_root must be set when analysis.module_name_from is %q", ModuleNameFromPath)
		}
	default:
		return fmt.Errorf("analysis.module_name_from must be one of: stem, path")
	}
	if _, err := resolver.ParseUnresolvedPolicy(a.Unresolved); err != nil {
		return fmt.Errorf("analysis.unresolved: %w", err)
	}
	if _, err := resolver.ParseTieBreak(a.TieBreak); err != nil {
		return fmt.Errorf("analysis.tie_break: %w", err)
	}
	if _, err := resolver.CompileIgnored(a.IgnoreSymbols); err != nil {
		return fmt.Errorf("analysis.ignore_symbols: %w", err)
	}
	if a.Workers < 1 {
		return fmt.Errorf("analysis.workers must be >= 1, got %d", a.Workers)
	}
	return nil
}

func validateWildcard(cfg *Config) error {
	w := cfg.Wildcard
	for module := range w.Modules {
		if strings.TrimSpace(module) == "" || strings.Contains(module, " ") {
			return fmt.Errorf("wildcard.modules has invalid module name %q", module)
		}
	}
	if w.CacheSize < 0 {
		return fmt.Errorf("wildcard.cache_size must be >= 0, got %d", w.CacheSize)
	}
	if w.IndexPath != "" && strings.TrimSpace(w.ProjectKey) == "" {
		return fmt.Errorf("wildcard.project_key must not be empty when wildcard.index_path is set")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	w := cfg.Watch
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if w.RateLimit < 0 {
		return fmt.Errorf("watch.rate_limit must not be negative")
	}
	if w.Burst < 0 {
		return fmt.Errorf("watch.burst must not be negative")
	}
	for _, pattern := range append(append([]string{}, w.ExcludeDirs...), w.ExcludeFiles...) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateMetrics(cfg *Config) error {
	if !cfg.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.Address); err != nil {
		return fmt.Errorf("metrics.address %q: %w", cfg.Metrics.Address, err)
	}
	return nil
}

func validateTracing(cfg *Config) error {
	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		return fmt.Errorf("tracing.endpoint must not be empty when tracing is enabled")
	}
	return nil
}
