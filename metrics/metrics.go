// Package metrics holds the prometheus collectors for the FMEA session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EditsTotal counts cell edits by column and outcome ("applied", "rejected").
	EditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fmeca_edits_total",
		Help: "Working-set cell edits by column and outcome.",
	}, []string{"column", "outcome"})

	// PersistTotal counts save attempts by outcome ("ok", "error").
	PersistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fmeca_persist_total",
		Help: "Working-set flushes to the store by outcome.",
	}, []string{"outcome"})

	// PersistDuration observes how long a full flush takes.
	PersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fmeca_persist_duration_seconds",
		Help:    "Duration of working-set flushes.",
		Buckets: prometheus.DefBuckets,
	})

	// ResetsTotal counts working-set resets to the default set.
	ResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fmeca_resets_total",
		Help: "Working-set resets to factory defaults.",
	})

	// ChartsTotal counts rendered charts by kind.
	ChartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fmeca_charts_total",
		Help: "Charts built by kind.",
	}, []string{"kind"})

	// AboveThresholdRows tracks how many working rows exceed the risk threshold.
	AboveThresholdRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fmeca_rows_above_threshold",
		Help: "Working-set rows whose RPN exceeds the risk threshold.",
	})
)
