// Package metrics exposes Prometheus instrumentation for the audit
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsPersisted   prometheus.Counter
	DeadLetters       prometheus.Counter
	SequenceConflicts prometheus.Counter
	PersistDuration   prometheus.Histogram
	VerifyRuns        prometheus.Counter
	VerifyFailures    prometheus.Counter
	HistoryCacheHits  prometheus.Counter
	HistoryCacheMiss  prometheus.Counter
}

// New creates and registers all pipeline metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		EventsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditledger_events_persisted_total",
			Help: "Total audit events durably persisted",
		}),
		DeadLetters: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditledger_dead_letters_total",
			Help: "Total audit events routed to the dead-letter store",
		}),
		SequenceConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditledger_sequence_conflicts_total",
			Help: "Total optimistic chain-head conflicts observed",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditledger_persist_duration_seconds",
			Help:    "End-to-end latency of the record pipeline",
			Buckets: prometheus.DefBuckets,
		}),
		VerifyRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditledger_verify_runs_total",
			Help: "Total integrity verification runs",
		}),
		VerifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditledger_verify_failures_total",
			Help: "Verification runs that found a divergence",
		}),
		HistoryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditledger_history_cache_hits_total",
			Help: "History queries served from the Redis cache",
		}),
		HistoryCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditledger_history_cache_misses_total",
			Help: "History queries that fell through to the ledger",
		}),
	}
}
