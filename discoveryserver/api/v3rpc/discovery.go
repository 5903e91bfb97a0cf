package v3rpc

import (
	"context"

	"github.com/iScript/udiscovery/discoveryserver"
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"

	"go.uber.org/zap"
)

// discoveryServer is the gRPC face of the engine. Outcomes travel in the
// response's Status; the error return is kept for transport failures.
type discoveryServer struct {
	pb.UnimplementedUDiscoveryServer

	lg     *zap.Logger
	finder discoveryserver.Finder
	dir    discoveryserver.Directory
	reg    discoveryserver.Registry
	nh     *discoveryserver.NotificationHub
	stopc  <-chan struct{}
}

func NewDiscoveryServer(s *discoveryserver.DiscoveryServer, nh *discoveryserver.NotificationHub) pb.UDiscoveryServer {
	return &discoveryServer{
		lg:     s.Logger(),
		finder: s,
		dir:    s,
		reg:    s,
		nh:     nh,
		stopc:  s.StopNotify(),
	}
}

func (ds *discoveryServer) LookupUri(ctx context.Context, r *pb.LookupUriRequest) (*pb.LookupUriResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.finder.LookupUri(r), nil
}

func (ds *discoveryServer) FindNodes(ctx context.Context, r *pb.FindNodesRequest) (*pb.FindNodesResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.finder.FindNodes(r), nil
}

func (ds *discoveryServer) FindNodeProperties(ctx context.Context, r *pb.FindNodePropertiesRequest) (*pb.FindNodePropertiesResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.finder.FindNodeProperties(r), nil
}

func (ds *discoveryServer) UpdateNode(ctx context.Context, r *pb.UpdateNodeRequest) (*pb.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.dir.UpdateNode(r), nil
}

func (ds *discoveryServer) UpdateProperty(ctx context.Context, r *pb.UpdatePropertyRequest) (*pb.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.dir.UpdateProperty(r), nil
}

func (ds *discoveryServer) AddNodes(ctx context.Context, r *pb.AddNodesRequest) (*pb.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.dir.AddNodes(r), nil
}

func (ds *discoveryServer) DeleteNodes(ctx context.Context, r *pb.DeleteNodesRequest) (*pb.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.dir.DeleteNodes(r), nil
}

func (ds *discoveryServer) RegisterForNotifications(ctx context.Context, r *pb.NotificationsRequest) (*pb.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.reg.RegisterForNotifications(r), nil
}

func (ds *discoveryServer) UnregisterForNotifications(ctx context.Context, r *pb.NotificationsRequest) (*pb.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, togRPCError(err)
	}
	return ds.reg.UnregisterForNotifications(r), nil
}
