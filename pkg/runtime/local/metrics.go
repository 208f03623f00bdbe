package local

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is a container of metrics for the local runtime.
type metrics struct {
	tasksTotal      *prometheus.CounterVec
	taskExecSeconds prometheus.Histogram

	broadcastsLive prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		tasksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "prestodb_local_runtime_tasks_total",
			Help: "Total number of fragment tasks run by outcome.",
		}, []string{"outcome"}),

		taskExecSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "prestodb_local_runtime_task_exec_seconds",
			Help: "Number of seconds a fragment task took to complete.",

			NativeHistogramBucketFactor:    1.1,
			NativeHistogramMaxBucketNumber: 100,
		}),

		broadcastsLive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "prestodb_local_runtime_broadcasts_live",
			Help: "Number of broadcast snapshots currently held in memory.",
		}),
	}
}
