package client

import (
	"context"
	"errors"
	"io"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

// WatchResponse carries one notification, or the error that ended the
// stream.
type WatchResponse struct {
	Notification *pb.Notification
	Err          error
}

// WatchChan delivers the notifications of one observer.
type WatchChan <-chan WatchResponse

// Watch streams the notifications addressed to observer. The channel is
// closed when ctx is done or the stream ends; an ending other than ctx
// cancellation is sent as a final response with Err set.
//
// Notifications are only delivered while a stream is open. Register
// subjects with Register before or after opening it.
func (c *Client) Watch(ctx context.Context, observer string) WatchChan {
	ch := make(chan WatchResponse)
	go c.watch(ctx, observer, ch)
	return ch
}

func (c *Client) watch(ctx context.Context, observer string, ch chan<- WatchResponse) {
	defer close(ch)

	stream, err := c.rpc.WatchNotifications(ctx, &pb.WatchNotificationsRequest{Observer: &pb.ObserverInfo{Uri: observer}})
	if err != nil {
		c.sendErr(ctx, ch, observer, err)
		return
	}
	for {
		n, err := stream.Recv()
		if err != nil {
			c.sendErr(ctx, ch, observer, err)
			return
		}
		select {
		case ch <- WatchResponse{Notification: n}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) sendErr(ctx context.Context, ch chan<- WatchResponse, observer string, err error) {
	if ctx.Err() != nil || ErrorCode(err) == codes.Canceled {
		return
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	c.lg.Debug("watch stream ended", zap.String("observer", observer), zap.Error(err))
	select {
	case ch <- WatchResponse{Err: err}:
	case <-ctx.Done():
	}
}
