package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PYSCOPE_[SECTION]_[KEY] (e.g., PYSCOPE_ANALYSIS_TIE_BREAK).
// Callers should run Validate afterwards.
func ApplyEnvOverrides(cfg *Config) {
	// Analysis
	setEnvString(&cfg.Analysis.ModuleNameFrom, "PYSCOPE_ANALYSIS_MODULE_NAME_FROM")
	setEnvString(&cfg.Analysis.ModuleRoot, "PYSCOPE_ANALYSIS_MODULE_ROOT")
	setEnvString(&cfg.Analysis.Unresolved, "PYSCOPE_ANALYSIS_UNRESOLVED")
	setEnvString(&cfg.Analysis.TieBreak, "PYSCOPE_ANALYSIS_TIE_BREAK")
	setEnvBool(&cfg.Analysis.BindParameters, "PYSCOPE_ANALYSIS_BIND_PARAMETERS")
	setEnvList(&cfg.Analysis.IgnoreSymbols, "PYSCOPE_ANALYSIS_IGNORE_SYMBOLS")
	setEnvInt(&cfg.Analysis.Workers, "PYSCOPE_ANALYSIS_WORKERS")

	// Wildcard
	setEnvString(&cfg.Wildcard.IndexPath, "PYSCOPE_WILDCARD_INDEX_PATH")
	setEnvString(&cfg.Wildcard.ProjectKey, "PYSCOPE_WILDCARD_PROJECT_KEY")
	setEnvInt(&cfg.Wildcard.CacheSize, "PYSCOPE_WILDCARD_CACHE_SIZE")

	// Watch
	setEnvList(&cfg.Watch.Paths, "PYSCOPE_WATCH_PATHS")
	setEnvDuration(&cfg.Watch.Debounce, "PYSCOPE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RateLimit, "PYSCOPE_WATCH_RATE_LIMIT")
	setEnvInt(&cfg.Watch.Burst, "PYSCOPE_WATCH_BURST")

	// Observability
	setEnvBool(&cfg.Metrics.Enabled, "PYSCOPE_METRICS_ENABLED")
	setEnvString(&cfg.Metrics.Address, "PYSCOPE_METRICS_ADDRESS")
	setEnvBool(&cfg.Tracing.Enabled, "PYSCOPE_TRACING_ENABLED")
	setEnvString(&cfg.Tracing.Endpoint, "PYSCOPE_TRACING_ENDPOINT")
	setEnvBool(&cfg.Tracing.Insecure, "PYSCOPE_TRACING_INSECURE")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			slog.Warn("ignoring invalid env override", "key", key, "value", val, "error", err)
			return
		}
		slog.Debug("applying env override", "key", key, "value", i)
		*target = i
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			slog.Warn("ignoring invalid env override", "key", key, "value", val, "error", err)
			return
		}
		slog.Debug("applying env override", "key", key, "value", f)
		*target = f
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			slog.Warn("ignoring invalid env override", "key", key, "value", val, "error", err)
			return
		}
		slog.Debug("applying env override", "key", key, "value", b)
		*target = b
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("ignoring invalid env override", "key", key, "value", val, "error", err)
			return
		}
		slog.Debug("applying env override", "key", key, "value", d)
		*target = d
	}
}
