package v3rpc

import (
	"context"
	"time"

	"github.com/iScript/udiscovery/discoveryserver"
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// newUnaryInterceptor rejects requests once the server is stopping.
func newUnaryInterceptor(s *discoveryserver.DiscoveryServer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		select {
		case <-s.StopNotify():
			return nil, ErrGRPCStopped
		default:
		}
		return handler(ctx, req)
	}
}

func newLogUnaryInterceptor(s *discoveryserver.DiscoveryServer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		startTime := time.Now()
		resp, err := handler(ctx, req)
		lg := s.Logger()
		if lg != nil && lg.Core().Enabled(zapcore.DebugLevel) {
			logUnaryRequestStats(ctx, lg, info, startTime, req, resp, err)
		}
		return resp, err
	}
}

func logUnaryRequestStats(ctx context.Context, lg *zap.Logger, info *grpc.UnaryServerInfo, startTime time.Time, req interface{}, resp interface{}, err error) {
	duration := time.Since(startTime)
	remote := "No remote client info."
	peerInfo, ok := peer.FromContext(ctx)
	if ok {
		remote = peerInfo.Addr.String()
	}

	responseType := info.FullMethod
	var code codes.Code
	if err != nil {
		code = status.Code(err)
	} else {
		code = responseStatus(resp).GetCode()
	}

	lg.Debug("request stats",
		zap.Time("start time", startTime),
		zap.Duration("time spent", duration),
		zap.String("remote", remote),
		zap.String("response type", responseType),
		zap.String("response code", code.String()),
		zap.Any("request content", req),
	)
}

// responseStatus returns the in-band status of a response.
func responseStatus(resp interface{}) *pb.Status {
	switch r := resp.(type) {
	case *pb.Status:
		return r
	case *pb.LookupUriResponse:
		return r.Status
	case *pb.FindNodesResponse:
		return r.Status
	case *pb.FindNodePropertiesResponse:
		return r.Status
	}
	return nil
}

func newStreamInterceptor(s *discoveryserver.DiscoveryServer) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		select {
		case <-s.StopNotify():
			return ErrGRPCStopped
		default:
		}
		return handler(srv, ss)
	}
}
