package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyscope_pass_seconds",
		Help:    "Time spent in one analysis phase for a module.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	ModulesAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyscope_modules_analyzed_total",
		Help: "Total number of modules analysed, by outcome.",
	}, []string{"outcome"})

	BindingsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_bindings_total",
		Help: "Total number of bindings recorded by the symbol table builder.",
	})

	EdgesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_edges_total",
		Help: "Total number of dependency edges recorded by the resolver.",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyscope_diagnostics_total",
		Help: "Total number of analysis diagnostics, by code.",
	}, []string{"code"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherBatchesThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_watcher_batches_throttled_total",
		Help: "Total number of change batches delayed by the re-analysis rate limit.",
	})
)

// Analysis phases reported through PassDuration.
const (
	PhaseParse   = "parse"
	PhaseSymbols = "symbols"
	PhaseResolve = "resolve"
	PhaseIndex   = "index"
)
