// Package client is a Go client for the udiscovery gRPC API.
package client

import (
	"context"
	"errors"
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// ErrNoEndpoint is returned by New when Config.Endpoint is empty.
var ErrNoEndpoint = errors.New("client: no endpoint")

// Config configures a Client.
type Config struct {
	// Endpoint is "host:port" or "unix:///path/to/socket".
	Endpoint string

	// RequestTimeout bounds calls whose context has no deadline.
	// Zero leaves such calls unbounded. It does not apply to Watch.
	RequestTimeout time.Duration

	// MaxCallSendMsgSize is the client-side request send limit in bytes.
	// Zero uses the gRPC default.
	MaxCallSendMsgSize int

	// DialOptions is a list of extra dial options for the gRPC client.
	DialOptions []grpc.DialOption

	// Logger logs client-side events. Nil disables logging.
	Logger *zap.Logger
}

// Client talks to one udiscovery server. It is safe for concurrent use.
type Client struct {
	cfg  Config
	conn *grpc.ClientConn
	rpc  pb.UDiscoveryClient
	lg   *zap.Logger
}

// New creates a client for cfg.Endpoint. Connecting is lazy: New does not
// wait for the server.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}

	callOpts := []grpc.CallOption{grpc.ForceCodec(pb.Codec{})}
	if cfg.MaxCallSendMsgSize > 0 {
		callOpts = append(callOpts, grpc.MaxCallSendMsgSize(cfg.MaxCallSendMsgSize))
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(callOpts...),
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, conn: conn, rpc: pb.NewUDiscoveryClient(conn), lg: lg}, nil
}

// Close shuts down the client's connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

// statusErr folds the transport error and the in-band status of a call
// into one error.
func statusErr(st *pb.Status, err error) error {
	if err != nil {
		return err
	}
	return st.Err()
}

// ErrorCode returns the status code carried by err: the in-band code of a
// failed operation, the gRPC code of a transport failure, OK for nil and
// Unknown otherwise.
func ErrorCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var se *pb.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}

// IsNotFound reports whether err says the referenced node does not exist.
func IsNotFound(err error) bool { return ErrorCode(err) == codes.NotFound }
