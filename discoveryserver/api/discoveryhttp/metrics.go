package discoveryhttp

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	PathMetrics = "/metrics"
	PathHealth  = "/health"
)

// HandleMetricsHealth registers metrics and health handlers.
func HandleMetricsHealth(mux *http.ServeMux, srv Server) {
	mux.Handle(PathMetrics, promhttp.Handler())
	mux.Handle(PathHealth, NewHealthHandler(srv.Logger(), func() Health { return checkHealth(srv) }))
}

// NewHealthHandler handles '/health' requests.
func NewHealthHandler(lg *zap.Logger, hfunc func() Health) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h := hfunc()
		code := http.StatusOK
		if h.Health != "true" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(lg, w, code, h)
	}
}

var (
	healthSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "health_success",
		Help:      "The total number of successful health checks",
	})
	healthFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "udiscovery",
		Subsystem: "server",
		Name:      "health_failures",
		Help:      "The total number of failed health checks",
	})
)

func init() {
	prometheus.MustRegister(healthSuccess)
	prometheus.MustRegister(healthFailed)
}

// Health defines the health status of a discovery server.
type Health struct {
	Health string `json:"health"`
	Reason string `json:"reason,omitempty"`
	Nodes  int    `json:"nodes"`
}

func checkHealth(srv Server) Health {
	h := Health{Health: "true", Nodes: srv.Stats().Nodes}

	select {
	case <-srv.StopNotify():
		h.Health, h.Reason = "false", "STOPPED"
	default:
		if err := srv.Validate(); err != nil {
			h.Health, h.Reason = "false", "TREE INVALID: "+err.Error()
		}
	}

	if h.Health == "true" {
		healthSuccess.Inc()
	} else {
		healthFailed.Inc()
		if lg := srv.Logger(); lg != nil {
			lg.Warn("serving /health false", zap.String("reason", h.Reason))
		}
	}
	return h
}
