// Package embed runs a discovery daemon inside a process: it opens the
// snapshot backend, starts the discovery server and serves gRPC and HTTP
// on the configured listeners.
package embed

import (
	"context"
	"fmt"
	"io"
	defaultLog "log"
	"net"
	"net/http"
	"runtime"
	"sync"

	"github.com/iScript/udiscovery/discoveryserver"
	"github.com/iScript/udiscovery/discoveryserver/api/discoveryhttp"
	rt "github.com/iScript/udiscovery/pkg/runtime"
	"github.com/iScript/udiscovery/pkg/transport"
	"github.com/iScript/udiscovery/version"

	"github.com/dustin/go-humanize"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// Discovery contains a running discovery server and its listeners.
type Discovery struct {
	Clients          []net.Listener
	sctxs            map[string]*serveCtx
	metricsListeners []net.Listener

	Server *discoveryserver.DiscoveryServer
	Hub    *discoveryserver.NotificationHub

	cfg   Config
	stopc chan struct{}
	errc  chan error

	closeOnce sync.Once
}

// StartDiscovery launches the discovery server and its listeners using
// the given configuration. On success the server is serving; Err reports
// fatal serving errors.
func StartDiscovery(inCfg *Config) (e *Discovery, err error) {
	if err = inCfg.Validate(); err != nil {
		return nil, err
	}
	serving := false
	e = &Discovery{cfg: *inCfg, stopc: make(chan struct{})}
	cfg := &e.cfg
	defer func() {
		if e == nil || err == nil {
			return
		}
		if !serving {
			// errored before starting gRPC server for serveCtx.serversC
			for _, sctx := range e.sctxs {
				close(sctx.serversC)
			}
		}
		e.Close()
		e = nil
	}()

	lg := e.GetLogger()
	lg.Info(
		"configuring client listeners",
		zap.Strings("listen-client-urls", e.cfg.getLCURLs()),
	)
	if e.sctxs, err = configureClientListeners(cfg); err != nil {
		return e, err
	}
	for _, sctx := range e.sctxs {
		e.Clients = append(e.Clients, sctx.l)
	}

	srvcfg := cfg.serverConfig()
	print(lg, *cfg, srvcfg)

	be, err := discoveryserver.OpenBackend(srvcfg)
	if err != nil {
		return e, fmt.Errorf("cannot open %s backend: %v", cfg.Backend, err)
	}
	e.Hub = discoveryserver.NewNotificationHub(cfg.NotificationBuffer)
	if e.Server, err = discoveryserver.NewServer(srvcfg, be, e.Hub); err != nil {
		be.Close()
		return e, err
	}

	// buffer channel so goroutines on closed connections won't wait forever
	e.errc = make(chan error, len(e.Clients)+2*len(e.sctxs)+len(cfg.ListenMetricsUrls))

	e.Server.Start()

	if err = e.serveMetrics(); err != nil {
		return e, err
	}
	serving = true
	e.serveClients()

	lg.Info(
		"now serving discovery client requests",
		zap.String("name", e.cfg.Name),
		zap.Strings("listen-client-urls", e.cfg.getLCURLs()),
		zap.Strings("listen-metrics-urls", e.cfg.getMetricsURLs()),
	)
	return e, nil
}

func print(lg *zap.Logger, ec Config, sc discoveryserver.ServerConfig) {
	quota := "unlimited"
	if sc.QuotaSnapshotBytes > 0 {
		quota = humanize.Bytes(uint64(sc.QuotaSnapshotBytes))
	}
	fields := []zap.Field{
		zap.String("udiscovery-version", version.Version),
		zap.String("git-sha", version.GitSHA),
		zap.String("go-version", runtime.Version()),
		zap.String("go-os", runtime.GOOS),
		zap.String("go-arch", runtime.GOARCH),
		zap.Int("max-cpu-set", runtime.GOMAXPROCS(0)),
		zap.Int("max-cpu-available", runtime.NumCPU()),
		zap.String("name", sc.Name),
		zap.String("data-dir", sc.DataDir),
		zap.String("backend", ec.Backend),
		zap.Duration("sweep-interval", sc.SweepInterval),
		zap.Int("expire-rate", sc.ExpireRate),
		zap.String("quota-snapshot-size", quota),
		zap.String("max-request-size", humanize.Bytes(uint64(sc.MaxRequestBytes))),
		zap.Int("notification-buffer", sc.NotificationBuffer),
		zap.Strings("listen-client-urls", ec.getLCURLs()),
		zap.Strings("listen-metrics-urls", ec.getMetricsURLs()),
	}
	if limit, err := rt.FDLimit(); err == nil {
		fields = append(fields, zap.Uint64("fd-limit", limit))
	}
	lg.Info("starting a discovery server", fields...)
}

// Config returns the current configuration.
func (e *Discovery) Config() Config {
	return e.cfg
}

// Close gracefully shuts down all servers/listeners.
// Client requests will be terminated with request timeout.
// After timeout, enforce remaning requests be closed immediately.
func (e *Discovery) Close() {
	lg := e.GetLogger()
	lg.Info(
		"closing discovery server",
		zap.String("name", e.cfg.Name),
		zap.Strings("listen-client-urls", e.cfg.getLCURLs()),
		zap.Strings("listen-metrics-urls", e.cfg.getMetricsURLs()),
	)
	defer lg.Info(
		"closed discovery server",
		zap.String("name", e.cfg.Name),
	)

	e.closeOnce.Do(func() { close(e.stopc) })

	// close client requests with request timeout
	timeout := e.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	for _, sctx := range e.sctxs {
		for ss := range sctx.serversC {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			stopServers(ctx, ss)
			cancel()
		}
	}

	for _, sctx := range e.sctxs {
		sctx.cancel()
	}

	for i := range e.Clients {
		if e.Clients[i] != nil {
			e.Clients[i].Close()
		}
	}

	for i := range e.metricsListeners {
		e.metricsListeners[i].Close()
	}

	if e.Server != nil {
		if err := e.Server.Shutdown(); err != nil {
			lg.Warn("failed to shut down discovery server", zap.Error(err))
		}
	}
}

func stopServers(ctx context.Context, ss *servers) {
	shutdownNow := func() {
		// first, close the http.Server
		ss.http.Shutdown(ctx)
		// then close grpc.Server; cancels all active RPCs
		ss.grpc.Stop()
	}

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		// close listeners to stop accepting new connections,
		// will block on any existing transports
		ss.grpc.GracefulStop()
	}()

	// wait until all pending RPCs are finished
	select {
	case <-ch:
	case <-ctx.Done():
		// took too long, manually close open transports
		// e.g. watch streams
		shutdownNow()

		// concurrent GracefulStop should be interrupted
		<-ch
	}
	ss.http.Shutdown(ctx)
}

// Err returns a channel used to report errors during the daemon's run
// or its shutdown.
func (e *Discovery) Err() <-chan error { return e.errc }

func configureClientListeners(cfg *Config) (sctxs map[string]*serveCtx, err error) {
	lg := cfg.GetLogger()
	sctxs = make(map[string]*serveCtx)
	for _, u := range cfg.LCUrls {
		sctx := newServeCtx(lg)
		if u.Scheme == "unix" {
			sctx.network = "unix"
			sctx.addr = u.Host + u.Path
		} else {
			sctx.network = "tcp"
			sctx.addr = u.Host
		}
		if oldctx := sctxs[sctx.addr]; oldctx != nil {
			continue
		}

		if sctx.l, err = transport.NewListener(u); err != nil {
			return sctxs, err
		}
		// net.Listener will rewrite ipv4 0.0.0.0 to ipv6 [::], breaking
		// hosts that disable ipv6. So, use the address given by the user.
		sctxs[sctx.addr] = sctx

		defer func(u string, l net.Listener) {
			if err != nil {
				l.Close()
				lg.Warn(
					"closing listener",
					zap.String("address", u),
					zap.Error(err),
				)
			}
		}(u.String(), sctx.l)

		if fdLimit, fderr := rt.FDLimit(); fderr == nil {
			if fdLimit <= reservedInternalFDNum {
				lg.Fatal(
					"file descriptor limit of the process is too low; please set higher",
					zap.Uint64("limit", fdLimit),
					zap.Int("recommended-limit", reservedInternalFDNum),
				)
			}
		}

		if cfg.EnablePprof {
			lg.Info("pprof is enabled", zap.String("path", "/debug/pprof"))
			sctx.registerPprof()
		}
		sctx.registerTrace()

		for k := range cfg.UserHandlers {
			sctx.userHandlers[k] = cfg.UserHandlers[k]
		}
		sctx.serviceRegister = cfg.ServiceRegister
	}
	return sctxs, nil
}

// internal fd usage includes the snapshot backend and the listeners.
const reservedInternalFDNum = 150

func (e *Discovery) serveClients() {
	mux := http.NewServeMux()
	discoveryhttp.HandleBasic(mux, e.Server)

	if e.cfg.Metrics == "extensive" {
		grpc_prometheus.EnableHandlingTimeHistogram()
	}

	var gopts []grpc.ServerOption
	if e.cfg.GRPCKeepAliveMinTime > 0 {
		gopts = append(gopts, grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             e.cfg.GRPCKeepAliveMinTime,
			PermitWithoutStream: false,
		}))
	}
	if e.cfg.GRPCKeepAliveInterval > 0 &&
		e.cfg.GRPCKeepAliveTimeout > 0 {
		gopts = append(gopts, grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    e.cfg.GRPCKeepAliveInterval,
			Timeout: e.cfg.GRPCKeepAliveTimeout,
		}))
	}

	// start client servers in each goroutine
	for _, sctx := range e.sctxs {
		go func(s *serveCtx) {
			e.errHandler(s.serve(e.Server, e.Hub, e.cfg.CORS, mux, e.errHandler, gopts...))
		}(sctx)
	}
}

func (e *Discovery) serveMetrics() (err error) {
	if len(e.cfg.ListenMetricsUrls) > 0 {
		metricsMux := http.NewServeMux()
		discoveryhttp.HandleMetricsHealth(metricsMux, e.Server)

		for _, murl := range e.cfg.ListenMetricsUrls {
			ml, err := transport.NewListener(murl)
			if err != nil {
				return err
			}
			e.metricsListeners = append(e.metricsListeners, ml)
			go func(u string, m *http.ServeMux) {
				e.GetLogger().Info(
					"serving metrics",
					zap.String("address", u),
				)
				srv := &http.Server{Handler: m, ErrorLog: defaultLog.New(io.Discard, "", 0)}
				e.errHandler(srv.Serve(ml))
			}(murl.String(), metricsMux)
		}
	}
	return nil
}

func (e *Discovery) errHandler(err error) {
	select {
	case <-e.stopc:
		return
	default:
	}
	select {
	case <-e.stopc:
	case e.errc <- err:
	}
}

// GetLogger returns the logger.
func (e *Discovery) GetLogger() *zap.Logger {
	e.cfg.loggerMu.RLock()
	l := e.cfg.logger
	e.cfg.loggerMu.RUnlock()
	return l
}
