package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dashboard_query"

var (
	// WindowAttempts counts executed query windows by kind and outcome (data, empty, error).
	WindowAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "window_attempts_total",
		Help:      "Timeseries query windows executed, by window kind and outcome.",
	}, []string{"kind", "outcome"})

	// FallbackSearches counts finished fallback searches by whether a fallback window was used.
	FallbackSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallback_searches_total",
		Help:      "Completed fallback searches, by whether a fallback window was tried.",
	}, []string{"fallback_used"})

	// FormulaResults counts evaluated formulas by status.
	FormulaResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "formula_results_total",
		Help:      "Evaluated formulas, by result status.",
	}, []string{"status"})

	// CacheLookups counts window cache lookups by result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "window_cache_lookups_total",
		Help:      "Window result cache lookups, by result.",
	}, []string{"result"})

	// EventsFlushed counts events written by the batch worker by outcome.
	EventsFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_flushed_total",
		Help:      "Events flushed to storage by the batch worker, by outcome.",
	}, []string{"outcome"})
)
