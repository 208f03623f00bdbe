package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCommitted  = "committed"
	outcomeRolledBack = "rolled_back"
)

// metrics is a container of metrics for the engine.
type metrics struct {
	queriesTotal *prometheus.CounterVec

	planningSeconds  prometheus.Histogram
	executionSeconds prometheus.Histogram

	broadcastsTotal     prometheus.Counter
	broadcastBytesTotal prometheus.Counter
	broadcastsReleased  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		queriesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "prestodb_engine_queries_total",
			Help: "Total number of queries by transactional outcome.",
		}, []string{"outcome"}),

		planningSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "prestodb_engine_planning_seconds",
			Help: "Number of seconds spent preparing, planning and fragmenting a query.",

			NativeHistogramBucketFactor:    1.1,
			NativeHistogramMaxBucketNumber: 100,
		}),

		executionSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "prestodb_engine_execution_seconds",
			Help: "Number of seconds spent executing the fragment graph, including commit or rollback.",

			NativeHistogramBucketFactor:    1.1,
			NativeHistogramMaxBucketNumber: 100,
		}),

		broadcastsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "prestodb_engine_broadcasts_total",
			Help: "Total number of broadcast resources created.",
		}),
		broadcastBytesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "prestodb_engine_broadcast_bytes_total",
			Help: "Total serialized bytes pushed as broadcast resources.",
		}),
		broadcastsReleased: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "prestodb_engine_broadcasts_released_total",
			Help: "Total number of broadcast resources released after collection.",
		}),
	}
}
