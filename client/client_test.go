package client

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/discoveryserver"
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3rpc"
	"github.com/iScript/udiscovery/pkg/uri"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type testEnv struct {
	s  *discoveryserver.DiscoveryServer
	nh *discoveryserver.NotificationHub
	c  *Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	lg := zaptest.NewLogger(t)
	nh := discoveryserver.NewNotificationHub(16)
	s, err := discoveryserver.NewServer(discoveryserver.ServerConfig{
		Name:        "client-test",
		BackendKind: backend.KindMemory,
		Logger:      lg,
	}, backend.NewMemory(), nh)
	require.NoError(t, err)

	gs := v3rpc.Server(s, nh)
	lis := bufconn.Listen(1 << 20)
	go gs.Serve(lis)

	c, err := New(Config{
		Endpoint:       "passthrough:///bufnet",
		RequestTimeout: 5 * time.Second,
		Logger:         lg,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		gs.Stop()
		s.Shutdown()
	})
	return &testEnv{s: s, nh: nh, c: c}
}

func TestNewNeedsEndpoint(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestClientOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.c.AddNodes(ctx, "/", &pb.Node{
		Uri:        "//vehicle",
		Type:       pb.Node_DEVICE,
		Properties: map[string]pb.PropertyValue{"vin": pb.StringValue("WVW")},
		Nodes:      []*pb.Node{{Uri: "//vehicle/radio"}, {Uri: "//vehicle/nav"}},
	}))

	uris, err := env.c.LookupUri(ctx, "//vehicle")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"//vehicle/radio", "//vehicle/nav"}, uris)

	n, err := env.c.FindNodes(ctx, "//vehicle", WithDepth(0))
	require.NoError(t, err)
	assert.Equal(t, "//vehicle", n.Uri)
	assert.Empty(t, n.Nodes)

	n, err = env.c.FindNodes(ctx, "//vehicle")
	require.NoError(t, err)
	assert.Len(t, n.Nodes, 2)

	require.NoError(t, env.c.UpdateProperty(ctx, "//vehicle/radio", "band", pb.StringValue("fm")))
	props, err := env.c.FindNodeProperties(ctx, "//vehicle/radio", "band", "volume")
	require.NoError(t, err)
	assert.Equal(t, map[string]pb.PropertyValue{"band": pb.StringValue("fm")}, props)

	require.NoError(t, env.c.UpdateNode(ctx, &pb.Node{Uri: "//vehicle/nav"}, WithTTL(time.Minute)))
	n, err = env.c.FindNodes(ctx, "//vehicle/nav")
	require.NoError(t, err)
	require.NotNil(t, n.Expiration)

	require.NoError(t, env.c.DeleteNodes(ctx, "//vehicle/radio", "//not/there"))
	_, err = env.c.FindNodes(ctx, "//vehicle/radio")
	assert.True(t, IsNotFound(err), "%v", err)
}

func TestClientInBandErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.c.AddNodes(ctx, "//missing", &pb.Node{Uri: "//missing/x"})
	assert.Equal(t, codes.NotFound, ErrorCode(err))
	var se *pb.StatusError
	assert.True(t, errors.As(err, &se))

	err = env.c.DeleteNodes(ctx, "no-slashes")
	assert.Equal(t, codes.InvalidArgument, ErrorCode(err))

	err = env.c.Register(ctx, "//obs", "//missing")
	assert.True(t, IsNotFound(err))

	assert.NoError(t, env.c.Unregister(ctx, "//obs", "//missing"))
}

func TestClientWatch(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wch := env.c.Watch(ctx, "//app")
	require.Eventually(t, func() bool { return env.nh.Subscribers(uri.MustParse("//app")) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, env.c.Register(ctx, "//app", "/"))
	require.NoError(t, env.c.AddNodes(ctx, "/", &pb.Node{Uri: "//svc"}))
	require.NoError(t, env.c.DeleteNodes(ctx, "//svc"))

	var actions []string
	for i := 0; i < 2; i++ {
		wr := <-wch
		require.NoError(t, wr.Err)
		assert.Equal(t, "//svc", wr.Notification.Uri)
		actions = append(actions, wr.Notification.Action)
	}
	assert.Equal(t, []string{pb.ActionCreate, pb.ActionDelete}, actions)

	cancel()
	for wr := range wch {
		assert.NoError(t, wr.Err, "cancellation is not reported as an error")
	}
}

func TestClientWatchEndsWithError(t *testing.T) {
	env := newTestEnv(t)
	wch := env.c.Watch(context.Background(), "//app")
	require.Eventually(t, func() bool { return env.nh.Subscribers(uri.MustParse("//app")) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, env.s.Shutdown())
	wr, ok := <-wch
	require.True(t, ok)
	assert.Equal(t, codes.Unavailable, ErrorCode(wr.Err))
	_, ok = <-wch
	assert.False(t, ok)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, codes.OK, ErrorCode(nil))
	assert.Equal(t, codes.DataLoss, ErrorCode(&pb.StatusError{Code: codes.DataLoss}))
	assert.Equal(t, codes.Unavailable, ErrorCode(status.Error(codes.Unavailable, "stopped")))
	assert.Equal(t, codes.DeadlineExceeded, ErrorCode(context.DeadlineExceeded))
	assert.Equal(t, codes.Unknown, ErrorCode(io.EOF))
}
