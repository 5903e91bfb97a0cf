package udiscoverypb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "udiscovery.v3.uDiscovery"

const (
	UDiscovery_LookupUri_FullMethodName                  = "/udiscovery.v3.uDiscovery/LookupUri"
	UDiscovery_FindNodes_FullMethodName                  = "/udiscovery.v3.uDiscovery/FindNodes"
	UDiscovery_FindNodeProperties_FullMethodName         = "/udiscovery.v3.uDiscovery/FindNodeProperties"
	UDiscovery_UpdateNode_FullMethodName                 = "/udiscovery.v3.uDiscovery/UpdateNode"
	UDiscovery_UpdateProperty_FullMethodName             = "/udiscovery.v3.uDiscovery/UpdateProperty"
	UDiscovery_AddNodes_FullMethodName                   = "/udiscovery.v3.uDiscovery/AddNodes"
	UDiscovery_DeleteNodes_FullMethodName                = "/udiscovery.v3.uDiscovery/DeleteNodes"
	UDiscovery_RegisterForNotifications_FullMethodName   = "/udiscovery.v3.uDiscovery/RegisterForNotifications"
	UDiscovery_UnregisterForNotifications_FullMethodName = "/udiscovery.v3.uDiscovery/UnregisterForNotifications"
	UDiscovery_WatchNotifications_FullMethodName         = "/udiscovery.v3.uDiscovery/WatchNotifications"
)

// UDiscoveryClient is the client API for the uDiscovery service.
type UDiscoveryClient interface {
	LookupUri(ctx context.Context, in *LookupUriRequest, opts ...grpc.CallOption) (*LookupUriResponse, error)
	FindNodes(ctx context.Context, in *FindNodesRequest, opts ...grpc.CallOption) (*FindNodesResponse, error)
	FindNodeProperties(ctx context.Context, in *FindNodePropertiesRequest, opts ...grpc.CallOption) (*FindNodePropertiesResponse, error)
	UpdateNode(ctx context.Context, in *UpdateNodeRequest, opts ...grpc.CallOption) (*Status, error)
	UpdateProperty(ctx context.Context, in *UpdatePropertyRequest, opts ...grpc.CallOption) (*Status, error)
	AddNodes(ctx context.Context, in *AddNodesRequest, opts ...grpc.CallOption) (*Status, error)
	DeleteNodes(ctx context.Context, in *DeleteNodesRequest, opts ...grpc.CallOption) (*Status, error)
	RegisterForNotifications(ctx context.Context, in *NotificationsRequest, opts ...grpc.CallOption) (*Status, error)
	UnregisterForNotifications(ctx context.Context, in *NotificationsRequest, opts ...grpc.CallOption) (*Status, error)
	WatchNotifications(ctx context.Context, in *WatchNotificationsRequest, opts ...grpc.CallOption) (UDiscovery_WatchNotificationsClient, error)
}

type uDiscoveryClient struct {
	cc grpc.ClientConnInterface
}

func NewUDiscoveryClient(cc grpc.ClientConnInterface) UDiscoveryClient {
	return &uDiscoveryClient{cc}
}

func (c *uDiscoveryClient) LookupUri(ctx context.Context, in *LookupUriRequest, opts ...grpc.CallOption) (*LookupUriResponse, error) {
	out := new(LookupUriResponse)
	if err := c.cc.Invoke(ctx, UDiscovery_LookupUri_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *uDiscoveryClient) FindNodes(ctx context.Context, in *FindNodesRequest, opts ...grpc.CallOption) (*FindNodesResponse, error) {
	out := new(FindNodesResponse)
	if err := c.cc.Invoke(ctx, UDiscovery_FindNodes_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *uDiscoveryClient) FindNodeProperties(ctx context.Context, in *FindNodePropertiesRequest, opts ...grpc.CallOption) (*FindNodePropertiesResponse, error) {
	out := new(FindNodePropertiesResponse)
	if err := c.cc.Invoke(ctx, UDiscovery_FindNodeProperties_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *uDiscoveryClient) invokeStatus(ctx context.Context, method string, in interface{}, opts ...grpc.CallOption) (*Status, error) {
	out := new(Status)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *uDiscoveryClient) UpdateNode(ctx context.Context, in *UpdateNodeRequest, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, UDiscovery_UpdateNode_FullMethodName, in, opts...)
}

func (c *uDiscoveryClient) UpdateProperty(ctx context.Context, in *UpdatePropertyRequest, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, UDiscovery_UpdateProperty_FullMethodName, in, opts...)
}

func (c *uDiscoveryClient) AddNodes(ctx context.Context, in *AddNodesRequest, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, UDiscovery_AddNodes_FullMethodName, in, opts...)
}

func (c *uDiscoveryClient) DeleteNodes(ctx context.Context, in *DeleteNodesRequest, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, UDiscovery_DeleteNodes_FullMethodName, in, opts...)
}

func (c *uDiscoveryClient) RegisterForNotifications(ctx context.Context, in *NotificationsRequest, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, UDiscovery_RegisterForNotifications_FullMethodName, in, opts...)
}

func (c *uDiscoveryClient) UnregisterForNotifications(ctx context.Context, in *NotificationsRequest, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, UDiscovery_UnregisterForNotifications_FullMethodName, in, opts...)
}

func (c *uDiscoveryClient) WatchNotifications(ctx context.Context, in *WatchNotificationsRequest, opts ...grpc.CallOption) (UDiscovery_WatchNotificationsClient, error) {
	stream, err := c.cc.NewStream(ctx, &UDiscovery_ServiceDesc.Streams[0], UDiscovery_WatchNotifications_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &uDiscoveryWatchNotificationsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type UDiscovery_WatchNotificationsClient interface {
	Recv() (*Notification, error)
	grpc.ClientStream
}

type uDiscoveryWatchNotificationsClient struct {
	grpc.ClientStream
}

func (x *uDiscoveryWatchNotificationsClient) Recv() (*Notification, error) {
	m := new(Notification)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// UDiscoveryServer is the server API for the uDiscovery service.
type UDiscoveryServer interface {
	LookupUri(context.Context, *LookupUriRequest) (*LookupUriResponse, error)
	FindNodes(context.Context, *FindNodesRequest) (*FindNodesResponse, error)
	FindNodeProperties(context.Context, *FindNodePropertiesRequest) (*FindNodePropertiesResponse, error)
	UpdateNode(context.Context, *UpdateNodeRequest) (*Status, error)
	UpdateProperty(context.Context, *UpdatePropertyRequest) (*Status, error)
	AddNodes(context.Context, *AddNodesRequest) (*Status, error)
	DeleteNodes(context.Context, *DeleteNodesRequest) (*Status, error)
	RegisterForNotifications(context.Context, *NotificationsRequest) (*Status, error)
	UnregisterForNotifications(context.Context, *NotificationsRequest) (*Status, error)
	WatchNotifications(*WatchNotificationsRequest, UDiscovery_WatchNotificationsServer) error
}

// UnimplementedUDiscoveryServer can be embedded to have forward compatible implementations.
type UnimplementedUDiscoveryServer struct{}

func (UnimplementedUDiscoveryServer) LookupUri(context.Context, *LookupUriRequest) (*LookupUriResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LookupUri not implemented")
}
func (UnimplementedUDiscoveryServer) FindNodes(context.Context, *FindNodesRequest) (*FindNodesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method FindNodes not implemented")
}
func (UnimplementedUDiscoveryServer) FindNodeProperties(context.Context, *FindNodePropertiesRequest) (*FindNodePropertiesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method FindNodeProperties not implemented")
}
func (UnimplementedUDiscoveryServer) UpdateNode(context.Context, *UpdateNodeRequest) (*Status, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdateNode not implemented")
}
func (UnimplementedUDiscoveryServer) UpdateProperty(context.Context, *UpdatePropertyRequest) (*Status, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdateProperty not implemented")
}
func (UnimplementedUDiscoveryServer) AddNodes(context.Context, *AddNodesRequest) (*Status, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AddNodes not implemented")
}
func (UnimplementedUDiscoveryServer) DeleteNodes(context.Context, *DeleteNodesRequest) (*Status, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteNodes not implemented")
}
func (UnimplementedUDiscoveryServer) RegisterForNotifications(context.Context, *NotificationsRequest) (*Status, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RegisterForNotifications not implemented")
}
func (UnimplementedUDiscoveryServer) UnregisterForNotifications(context.Context, *NotificationsRequest) (*Status, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UnregisterForNotifications not implemented")
}
func (UnimplementedUDiscoveryServer) WatchNotifications(*WatchNotificationsRequest, UDiscovery_WatchNotificationsServer) error {
	return status.Errorf(codes.Unimplemented, "method WatchNotifications not implemented")
}

func RegisterUDiscoveryServer(s grpc.ServiceRegistrar, srv UDiscoveryServer) {
	s.RegisterService(&UDiscovery_ServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(UDiscoveryServer, context.Context, *Req) (interface{}, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(UDiscoveryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(UDiscoveryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _UDiscovery_WatchNotifications_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(WatchNotificationsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(UDiscoveryServer).WatchNotifications(m, &uDiscoveryWatchNotificationsServer{stream})
}

type UDiscovery_WatchNotificationsServer interface {
	Send(*Notification) error
	grpc.ServerStream
}

type uDiscoveryWatchNotificationsServer struct {
	grpc.ServerStream
}

func (x *uDiscoveryWatchNotificationsServer) Send(m *Notification) error {
	return x.ServerStream.SendMsg(m)
}

var UDiscovery_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UDiscoveryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "LookupUri",
			Handler: unaryHandler(UDiscovery_LookupUri_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *LookupUriRequest) (interface{}, error) {
				return s.LookupUri(ctx, in)
			}),
		},
		{
			MethodName: "FindNodes",
			Handler: unaryHandler(UDiscovery_FindNodes_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *FindNodesRequest) (interface{}, error) {
				return s.FindNodes(ctx, in)
			}),
		},
		{
			MethodName: "FindNodeProperties",
			Handler: unaryHandler(UDiscovery_FindNodeProperties_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *FindNodePropertiesRequest) (interface{}, error) {
				return s.FindNodeProperties(ctx, in)
			}),
		},
		{
			MethodName: "UpdateNode",
			Handler: unaryHandler(UDiscovery_UpdateNode_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *UpdateNodeRequest) (interface{}, error) {
				return s.UpdateNode(ctx, in)
			}),
		},
		{
			MethodName: "UpdateProperty",
			Handler: unaryHandler(UDiscovery_UpdateProperty_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *UpdatePropertyRequest) (interface{}, error) {
				return s.UpdateProperty(ctx, in)
			}),
		},
		{
			MethodName: "AddNodes",
			Handler: unaryHandler(UDiscovery_AddNodes_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *AddNodesRequest) (interface{}, error) {
				return s.AddNodes(ctx, in)
			}),
		},
		{
			MethodName: "DeleteNodes",
			Handler: unaryHandler(UDiscovery_DeleteNodes_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *DeleteNodesRequest) (interface{}, error) {
				return s.DeleteNodes(ctx, in)
			}),
		},
		{
			MethodName: "RegisterForNotifications",
			Handler: unaryHandler(UDiscovery_RegisterForNotifications_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *NotificationsRequest) (interface{}, error) {
				return s.RegisterForNotifications(ctx, in)
			}),
		},
		{
			MethodName: "UnregisterForNotifications",
			Handler: unaryHandler(UDiscovery_UnregisterForNotifications_FullMethodName, func(s UDiscoveryServer, ctx context.Context, in *NotificationsRequest) (interface{}, error) {
				return s.UnregisterForNotifications(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchNotifications",
			Handler:       _UDiscovery_WatchNotifications_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "udiscovery.proto",
}
