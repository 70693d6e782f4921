package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pyxref_parse_seconds",
		Help:    "Time spent parsing a single Python source file.",
		Buckets: prometheus.DefBuckets,
	})

	EntitiesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyxref_entities_extracted_total",
		Help: "Total number of entities extracted, by kind.",
	}, []string{"kind"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyxref_analysis_seconds",
		Help:    "Time spent in each resolution pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	InitializerRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyxref_initializer_runs_total",
		Help: "Total number of package initializer executions.",
	})

	InitializerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyxref_initializer_failures_total",
		Help: "Total number of package initializer executions that failed.",
	})

	AliasesCaptured = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyxref_aliases_captured_total",
		Help: "Number of re-export aliases captured in the last run.",
	})

	ReferencesLinked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyxref_references_linked_total",
		Help: "Number of dependency references linked in the last run.",
	})

	RebuildEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyxref_rebuild_events_total",
		Help: "Total number of full re-analysis runs triggered by file changes.",
	})
)
