package snap

import "github.com/prometheus/client_golang/prometheus"

var (
	snapExportDurations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "udiscovery",
		Subsystem: "snap",
		Name:      "export_total_duration_seconds",
		Help:      "The total latency distributions of encoding and sealing a tree snapshot.",

		// lowest bucket start of upper bound 0.0001 sec (0.1 ms) with factor 2
		// highest bucket start of 0.0001 sec * 2^13 == 0.8192 sec
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	snapSaveDurations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "udiscovery",
		Subsystem: "snap",
		Name:      "save_total_duration_seconds",
		Help:      "The total latency distributions of writing a snapshot to the backend.",

		// lowest bucket start of upper bound 0.001 sec (1 ms) with factor 2
		// highest bucket start of 0.001 sec * 2^13 == 8.192 sec
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	snapSaveFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "snap",
		Name:      "save_failures_total",
		Help:      "The total number of snapshot writes that failed.",
	})

	snapCorruptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "snap",
		Name:      "corrupt_total",
		Help:      "The total number of snapshots rejected by the integrity check.",
	})

	snapshotBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "snap",
		Name:      "snapshot_size_bytes",
		Help:      "Size of the latest exported snapshot in bytes.",
	})

	backendSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "snap",
		Name:      "backend_size_bytes",
		Help:      "Size of the snapshot held by the backend in bytes.",
	})
)

func init() {
	prometheus.MustRegister(snapExportDurations)
	prometheus.MustRegister(snapSaveDurations)
	prometheus.MustRegister(snapSaveFailures)
	prometheus.MustRegister(snapCorruptTotal)
	prometheus.MustRegister(snapshotBytes)
	prometheus.MustRegister(backendSizeBytes)
}
