package embed

import (
	"context"
	"io"
	defaultLog "log"
	"net"
	"net/http"

	"github.com/iScript/udiscovery/discoveryserver"
	"github.com/iScript/udiscovery/discoveryserver/api/v3rpc"
	"github.com/iScript/udiscovery/pkg/debugutil"

	"github.com/soheilhy/cmux"
	"go.uber.org/zap"
	"golang.org/x/net/trace"
	"google.golang.org/grpc"
)

type serveCtx struct {
	lg      *zap.Logger
	l       net.Listener
	addr    string
	network string

	ctx    context.Context
	cancel context.CancelFunc

	userHandlers    map[string]http.Handler
	serviceRegister func(*grpc.Server)
	serversC        chan *servers
}

type servers struct {
	grpc *grpc.Server
	http *http.Server
}

func newServeCtx(lg *zap.Logger) *serveCtx {
	ctx, cancel := context.WithCancel(context.Background())
	return &serveCtx{
		lg:           lg,
		ctx:          ctx,
		cancel:       cancel,
		userHandlers: make(map[string]http.Handler),
		serversC:     make(chan *servers, 1),
	}
}

// serve accepts incoming connections on the listener l,
// creating a new service goroutine for each. HTTP/2 connections go to
// the gRPC server and HTTP/1 requests to handler.
func (sctx *serveCtx) serve(
	s *discoveryserver.DiscoveryServer,
	nh *discoveryserver.NotificationHub,
	cors map[string]struct{},
	handler http.Handler,
	errHandler func(error),
	gopts ...grpc.ServerOption) error {
	logger := defaultLog.New(io.Discard, "discoveryhttp", 0)

	m := cmux.New(sctx.l)

	gs := v3rpc.Server(s, nh, gopts...)
	if sctx.serviceRegister != nil {
		sctx.serviceRegister(gs)
	}
	grpcl := m.Match(cmux.HTTP2())
	go func() { errHandler(gs.Serve(grpcl)) }()

	httpmux := sctx.createMux(handler)
	srvhttp := &http.Server{
		Handler:  createAccessController(sctx.lg, cors, httpmux),
		ErrorLog: logger, // do not log user error
	}
	httpl := m.Match(cmux.HTTP1())
	go func() { errHandler(srvhttp.Serve(httpl)) }()

	sctx.serversC <- &servers{grpc: gs, http: srvhttp}
	close(sctx.serversC)

	sctx.lg.Info(
		"serving client traffic",
		zap.String("network", sctx.network),
		zap.String("address", sctx.l.Addr().String()),
	)
	return m.Serve()
}

func (sctx *serveCtx) createMux(handler http.Handler) *http.ServeMux {
	httpmux := http.NewServeMux()
	for path, h := range sctx.userHandlers {
		httpmux.Handle(path, h)
	}
	if handler != nil {
		httpmux.Handle("/", handler)
	}
	return httpmux
}

// createAccessController wraps HTTP multiplexer:
// - answers CORS preflight requests
// - writes CORS headers for allowed origins
func createAccessController(lg *zap.Logger, cors map[string]struct{}, mux *http.ServeMux) http.Handler {
	return &accessController{lg: lg, cors: cors, mux: mux}
}

type accessController struct {
	lg   *zap.Logger
	cors map[string]struct{}
	mux  *http.ServeMux
}

func (ac *accessController) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if ac.originAllowed("*") {
		addCORSHeader(rw, "*")
	} else if origin := req.Header.Get("Origin"); ac.originAllowed(origin) {
		addCORSHeader(rw, origin)
	}

	if req.Method == "OPTIONS" {
		rw.WriteHeader(http.StatusOK)
		return
	}

	ac.mux.ServeHTTP(rw, req)
}

func (ac *accessController) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := ac.cors[origin]
	return ok
}

// addCORSHeader adds the correct cors headers given an origin
func addCORSHeader(w http.ResponseWriter, origin string) {
	w.Header().Add("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Add("Access-Control-Allow-Origin", origin)
	w.Header().Add("Access-Control-Allow-Headers", "accept, content-type, authorization")
}

func (sctx *serveCtx) registerUserHandler(s string, h http.Handler) {
	if sctx.userHandlers[s] != nil {
		sctx.lg.Warn("path is already registered by user handler", zap.String("path", s))
		return
	}
	sctx.userHandlers[s] = h
}

func (sctx *serveCtx) registerPprof() {
	for p, h := range debugutil.PProfHandlers() {
		sctx.registerUserHandler(p, h)
	}
}

func (sctx *serveCtx) registerTrace() {
	reqf := func(w http.ResponseWriter, r *http.Request) { trace.Render(w, r, true) }
	sctx.registerUserHandler("/debug/requests", http.HandlerFunc(reqf))
	evf := func(w http.ResponseWriter, r *http.Request) { trace.RenderEvents(w, r, true) }
	sctx.registerUserHandler("/debug/events", http.HandlerFunc(evf))
}
