// Package discoveryhttp serves the plain HTTP endpoints of a discovery
// server: version, health, metrics and liveness probing.
package discoveryhttp

import (
	"encoding/json"
	"net/http"

	"github.com/iScript/udiscovery/discoveryserver"
	"github.com/iScript/udiscovery/version"

	"github.com/xiang90/probing"
	"go.uber.org/zap"
)

const (
	versionPath = "/version"
	statsPath   = "/stats"
	probePath   = "/probe"
)

// Server is what the HTTP endpoints need from a discovery server.
type Server interface {
	Logger() *zap.Logger
	StopNotify() <-chan struct{}
	Validate() error
	Stats() discoveryserver.ServerStats
}

// HandleBasic adds the version, stats, probe, metrics and health handlers to mux.
func HandleBasic(mux *http.ServeMux, server Server) {
	mux.HandleFunc(versionPath, serveVersion(server.Logger()))
	mux.HandleFunc(statsPath, serveStats(server))
	mux.Handle(probePath, probing.NewHandler())
	HandleMetricsHealth(mux, server)
}

func serveVersion(lg *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(lg, w, http.StatusOK, version.Get())
	}
}

func serveStats(server Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(server.Logger(), w, http.StatusOK, server.Stats())
	}
}

func writeJSON(lg *zap.Logger, w http.ResponseWriter, code int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		if lg != nil {
			lg.Warn("failed to marshal response to json", zap.Error(err))
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

// allowMethod verifies that the given method is one of the allowed methods,
// and if not, it writes an error to w.
func allowMethod(w http.ResponseWriter, r *http.Request, m string) bool {
	if m == r.Method {
		return true
	}
	w.Header().Set("Allow", m)
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	return false
}
