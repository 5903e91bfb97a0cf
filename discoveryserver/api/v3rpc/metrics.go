package v3rpc

import "github.com/prometheus/client_golang/prometheus"

var (
	sentBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "network",
		Name:      "client_grpc_sent_bytes_total",
		Help:      "The total number of bytes sent to grpc clients.",
	})

	receivedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "network",
		Name:      "client_grpc_received_bytes_total",
		Help:      "The total number of bytes received from grpc clients.",
	})

	watchStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "udiscovery",
		Subsystem: "network",
		Name:      "watch_streams",
		Help:      "The number of open notification watch streams.",
	})
)

func init() {
	prometheus.MustRegister(sentBytes)
	prometheus.MustRegister(receivedBytes)
	prometheus.MustRegister(watchStreams)
}
