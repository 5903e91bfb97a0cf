package v3rpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/discoveryserver"
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3error"
	"github.com/iScript/udiscovery/pkg/uri"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type rpcEnv struct {
	s      *discoveryserver.DiscoveryServer
	nh     *discoveryserver.NotificationHub
	conn   *grpc.ClientConn
	client pb.UDiscoveryClient
}

func newRPCEnv(t *testing.T) *rpcEnv {
	t.Helper()
	nh := discoveryserver.NewNotificationHub(16)
	s, err := discoveryserver.NewServer(discoveryserver.ServerConfig{
		Name:        "rpc-test",
		BackendKind: backend.KindMemory,
		Logger:      zaptest.NewLogger(t),
	}, backend.NewMemory(), nh)
	require.NoError(t, err)

	gs := Server(s, nh)
	lis := bufconn.Listen(1 << 20)
	go gs.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(pb.Codec{})),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		gs.Stop()
		s.Shutdown()
	})
	return &rpcEnv{s: s, nh: nh, conn: conn, client: pb.NewUDiscoveryClient(conn)}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func requireOK(t *testing.T, st *pb.Status, err error) {
	t.Helper()
	require.NoError(t, err)
	require.True(t, st.IsOK(), st.String())
}

func TestRPCRoundTrip(t *testing.T) {
	env := newRPCEnv(t)
	ctx := testCtx(t)

	st, err := env.client.AddNodes(ctx, &pb.AddNodesRequest{ParentUri: "/", Nodes: []*pb.Node{{
		Uri:        "//vehicle",
		Type:       pb.Node_DEVICE,
		Properties: map[string]pb.PropertyValue{"vin": pb.StringValue("1234"), "year": pb.IntegerValue(2024)},
		Nodes:      []*pb.Node{{Uri: "//vehicle/body"}},
	}}})
	requireOK(t, st, err)

	found, err := env.client.FindNodes(ctx, &pb.FindNodesRequest{Uri: "//vehicle", Depth: new(int32)})
	require.NoError(t, err)
	require.True(t, found.Status.IsOK(), found.Status.String())
	require.Len(t, found.Nodes, 1)
	assert.Equal(t, pb.Node_DEVICE, found.Nodes[0].Type)
	assert.Equal(t, pb.IntegerValue(2024), found.Nodes[0].Properties["year"])
	assert.Empty(t, found.Nodes[0].Nodes)

	looked, err := env.client.LookupUri(ctx, &pb.LookupUriRequest{Uri: "//vehicle"})
	require.NoError(t, err)
	assert.Equal(t, []string{"//vehicle/body"}, looked.Uris)

	v := pb.DoubleValue(1.5)
	st, err = env.client.UpdateProperty(ctx, &pb.UpdatePropertyRequest{Uri: "//vehicle/body", Property: "width", Value: &v})
	requireOK(t, st, err)
	props, err := env.client.FindNodeProperties(ctx, &pb.FindNodePropertiesRequest{Uri: "//vehicle/body", Properties: []string{"width"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]pb.PropertyValue{"width": v}, props.Properties)

	ttl := int32(60000)
	st, err = env.client.UpdateNode(ctx, &pb.UpdateNodeRequest{Node: &pb.Node{Uri: "//vehicle/body"}, Ttl: &ttl})
	requireOK(t, st, err)
	found, err = env.client.FindNodes(ctx, &pb.FindNodesRequest{Uri: "//vehicle/body"})
	require.NoError(t, err)
	assert.NotNil(t, found.Nodes[0].Expiration)
	assert.Positive(t, found.Nodes[0].Ttl)

	st, err = env.client.DeleteNodes(ctx, &pb.DeleteNodesRequest{Uris: []string{"//vehicle", "//never"}})
	requireOK(t, st, err)
}

func TestRPCStatusIsInBand(t *testing.T) {
	env := newRPCEnv(t)
	ctx := testCtx(t)

	found, err := env.client.FindNodes(ctx, &pb.FindNodesRequest{Uri: "//missing"})
	require.NoError(t, err)
	assert.Equal(t, codes.NotFound, found.Status.GetCode())

	st, err := env.client.AddNodes(ctx, &pb.AddNodesRequest{ParentUri: "not-a-uri"})
	require.NoError(t, err)
	assert.Equal(t, codes.InvalidArgument, st.GetCode())
	assert.Error(t, st.Err())
}

func TestRPCWatchNotifications(t *testing.T) {
	env := newRPCEnv(t)
	ctx := testCtx(t)

	stream, err := env.client.WatchNotifications(ctx, &pb.WatchNotificationsRequest{Observer: &pb.ObserverInfo{Uri: "//app/1"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return env.nh.Subscribers(uri.MustParse("//app/1")) == 1 }, 5*time.Second, 10*time.Millisecond)

	st, err := env.client.RegisterForNotifications(ctx, &pb.NotificationsRequest{Observer: &pb.ObserverInfo{Uri: "//app/1"}, Uris: []string{"/"}})
	requireOK(t, st, err)
	st, err = env.client.AddNodes(ctx, &pb.AddNodesRequest{ParentUri: "/", Nodes: []*pb.Node{{Uri: "//svc"}}})
	requireOK(t, st, err)

	n, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "//app/1", n.Observer)
	assert.Equal(t, "//svc", n.Uri)
	assert.Equal(t, "/", n.Parent)
	assert.Equal(t, pb.ActionCreate, n.Action)

	st, err = env.client.UnregisterForNotifications(ctx, &pb.NotificationsRequest{Observer: &pb.ObserverInfo{Uri: "//app/1"}, Uris: []string{"/"}})
	requireOK(t, st, err)
}

func TestRPCWatchNeedsObserver(t *testing.T) {
	env := newRPCEnv(t)
	ctx := testCtx(t)

	for _, r := range []*pb.WatchNotificationsRequest{{}, {Observer: &pb.ObserverInfo{Uri: "bad"}}} {
		stream, err := env.client.WatchNotifications(ctx, r)
		require.NoError(t, err)
		_, err = stream.Recv()
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	}
}

func TestRPCWatchEndsOnShutdown(t *testing.T) {
	env := newRPCEnv(t)
	ctx := testCtx(t)

	stream, err := env.client.WatchNotifications(ctx, &pb.WatchNotificationsRequest{Observer: &pb.ObserverInfo{Uri: "//app"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return env.nh.Subscribers(uri.MustParse("//app")) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, env.s.Shutdown())
	_, err = stream.Recv()
	assert.Equal(t, codes.Unavailable, status.Code(err))

	_, err = env.client.FindNodes(ctx, &pb.FindNodesRequest{Uri: "/"})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestRPCHealth(t *testing.T) {
	env := newRPCEnv(t)
	hc := healthpb.NewHealthClient(env.conn)

	resp, err := hc.Check(testCtx(t), &healthpb.HealthCheckRequest{Service: pb.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestRPCCanceled(t *testing.T) {
	env := newRPCEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.client.LookupUri(ctx, &pb.LookupUriRequest{Uri: "/"})
	assert.Equal(t, codes.Canceled, status.Code(err))
}

func TestTogRPCError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{v3error.NewError(v3error.EcodeNodeNotFound, "//a"), codes.NotFound},
		{v3error.NewError(v3error.EcodeCorrupt, "checksum"), codes.DataLoss},
		{ErrGRPCStopped, codes.Unavailable},
		{errors.New("boom"), codes.Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(togRPCError(tt.err)), tt.err.Error())
	}
	assert.NoError(t, togRPCError(nil))
}
