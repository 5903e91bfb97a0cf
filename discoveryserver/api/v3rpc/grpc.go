package v3rpc

import (
	"math"

	"github.com/iScript/udiscovery/discoveryserver"
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	grpcOverheadBytes = 512 * 1024
	maxStreams        = math.MaxUint32
	maxSendBytes      = math.MaxInt32
)

// Server creates a gRPC server serving s. Watch streams are fed from nh.
func Server(s *discoveryserver.DiscoveryServer, nh *discoveryserver.NotificationHub, gopts ...grpc.ServerOption) *grpc.Server {
	var opts []grpc.ServerOption
	opts = append(opts, grpc.ForceServerCodec(&codec{}))
	opts = append(opts, grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
		newLogUnaryInterceptor(s),
		newUnaryInterceptor(s),
		grpc_prometheus.UnaryServerInterceptor,
	)))
	opts = append(opts, grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
		newStreamInterceptor(s),
		grpc_prometheus.StreamServerInterceptor,
	)))

	maxRecv := int(s.Cfg.MaxRequestBytes + grpcOverheadBytes)
	if s.Cfg.MaxRequestBytes == 0 {
		maxRecv = int(discoveryserver.DefaultMaxRequestBytes + grpcOverheadBytes)
	}
	opts = append(opts, grpc.MaxRecvMsgSize(maxRecv))
	opts = append(opts, grpc.MaxSendMsgSize(maxSendBytes))
	opts = append(opts, grpc.MaxConcurrentStreams(maxStreams))
	grpcServer := grpc.NewServer(append(opts, gopts...)...)

	pb.RegisterUDiscoveryServer(grpcServer, NewDiscoveryServer(s, nh))

	// server should register all the services manually
	// use empty service name for all services
	hsrv := health.NewServer()
	hsrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hsrv.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hsrv)
	go func() {
		<-s.StopNotify()
		hsrv.Shutdown()
	}()

	// set zero values for metrics registered for this grpc server
	grpc_prometheus.Register(grpcServer)

	return grpcServer
}
