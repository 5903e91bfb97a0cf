package discoveryserver

import (
	goruntime "runtime"

	"github.com/iScript/udiscovery/version"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	nodesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "nodes",
		Help:      "The current number of nodes in the tree, the root included.",
	})
	observersTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "observer_entries",
		Help:      "The current number of (subject, observer) registrations.",
	})
	mutationsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "mutations_applied_total",
		Help:      "The total number of mutations applied to the tree.",
	},
		[]string{"operation"},
	)
	mutationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "mutations_failed_total",
		Help:      "The total number of rejected mutations.",
	},
		[]string{"operation", "code"},
	)
	nodesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "nodes_expired_total",
		Help:      "The total number of nodes removed because their ttl elapsed.",
	})
	notificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "notifications_sent_total",
		Help:      "The total number of notifications handed to observers.",
	})
	notificationsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "notifications_failed_total",
		Help:      "The total number of notifications that could not be delivered.",
	})
	quotaSnapshotBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "quota_snapshot_bytes",
		Help:      "Current snapshot size quota in bytes.",
	})
	currentVersion = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "version",
		Help:      "Which version is running. 1 for 'server_version' label with current version.",
	},
		[]string{"server_version"})
	currentGoVersion = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "go_version",
		Help:      "Which Go version server is running with. 1 for 'server_go_version' label with current version.",
	},
		[]string{"server_go_version"})
)

func init() {
	prometheus.MustRegister(nodesTotal)
	prometheus.MustRegister(observersTotal)
	prometheus.MustRegister(mutationsApplied)
	prometheus.MustRegister(mutationsFailed)
	prometheus.MustRegister(nodesExpired)
	prometheus.MustRegister(notificationsSent)
	prometheus.MustRegister(notificationsFailed)
	prometheus.MustRegister(quotaSnapshotBytes)
	prometheus.MustRegister(currentVersion)
	prometheus.MustRegister(currentGoVersion)

	currentVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)
	currentGoVersion.With(prometheus.Labels{
		"server_go_version": goruntime.Version(),
	}).Set(1)
}
