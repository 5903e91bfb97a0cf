package discoveryhttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iScript/udiscovery/discoveryserver"
	"github.com/iScript/udiscovery/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeServer struct {
	lg       *zap.Logger
	stopc    chan struct{}
	validErr error
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{lg: zaptest.NewLogger(t), stopc: make(chan struct{})}
}

func (f *fakeServer) Logger() *zap.Logger         { return f.lg }
func (f *fakeServer) StopNotify() <-chan struct{} { return f.stopc }
func (f *fakeServer) Validate() error             { return f.validErr }
func (f *fakeServer) Stats() discoveryserver.ServerStats {
	return discoveryserver.ServerStats{Name: "fake", Nodes: 3, Backend: "memory"}
}

func serve(t *testing.T, srv Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	HandleBasic(mux, srv)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServeVersion(t *testing.T) {
	rec := serve(t, newFakeServer(t), http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var vs version.Versions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vs))
	assert.Equal(t, version.Get(), vs)

	rec = serve(t, newFakeServer(t), http.MethodPost, "/version")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestServeStats(t *testing.T) {
	rec := serve(t, newFakeServer(t), http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var st discoveryserver.ServerStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "fake", st.Name)
	assert.Equal(t, 3, st.Nodes)
}

func TestServeHealth(t *testing.T) {
	srv := newFakeServer(t)
	rec := serve(t, srv, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var h Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, Health{Health: "true", Nodes: 3}, h)

	srv.validErr = errors.New("orphan //a/b")
	rec = serve(t, srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "TREE INVALID: orphan //a/b", h.Reason)

	close(srv.stopc)
	rec = serve(t, srv, http.MethodGet, "/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "STOPPED", h.Reason)
}

func TestServeProbeAndMetrics(t *testing.T) {
	rec := serve(t, newFakeServer(t), http.MethodGet, "/probe")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, newFakeServer(t), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "udiscovery_server_health_success")
}
