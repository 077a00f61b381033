package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coffeegraph_build_seconds",
		Help:    "Time spent on a full build, by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coffeegraph_phase_seconds",
		Help:    "Time spent in one build phase (lex, scope, graph, sort, export).",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	LexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coffeegraph_lex_seconds",
		Help:    "Time spent tokenizing a single source file.",
		Buckets: prometheus.DefBuckets,
	})

	SourceFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffeegraph_source_files",
		Help: "Number of source files in the last build.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffeegraph_graph_nodes_total",
		Help: "Total number of identifier nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffeegraph_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	GlobalsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffeegraph_globals_registered",
		Help: "Number of globals registered in the last build.",
	})

	UnresolvedReferences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coffeegraph_unresolved_references_total",
		Help: "Candidate references that did not resolve to a registered global.",
	})

	CyclesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coffeegraph_cycles_total",
		Help: "Builds that failed because of a cyclic dependency.",
	})

	TokenCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coffeegraph_token_cache_lookups_total",
		Help: "Token cache lookups by result.",
	}, []string{"result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coffeegraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coffeegraph_rebuilds_throttled_total",
		Help: "Watch mode rebuilds delayed by the rebuild rate limit.",
	})
)
