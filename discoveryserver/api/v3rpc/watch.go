package v3rpc

import (
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/pkg/uri"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// WatchNotifications streams the notifications owed to the observer until
// the client goes away or the server stops. Registrations are made with
// RegisterForNotifications; the stream only delivers.
func (ds *discoveryServer) WatchNotifications(r *pb.WatchNotificationsRequest, stream pb.UDiscovery_WatchNotificationsServer) error {
	if r == nil || r.Observer == nil || r.Observer.Uri == "" {
		return ErrGRPCNoObserver
	}
	observer, err := uri.Parse(r.Observer.Uri)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if ds.nh == nil {
		return ErrGRPCStopped
	}
	c, cancel, err := ds.nh.Subscribe(observer)
	if err != nil {
		return ErrGRPCStopped
	}
	defer cancel()

	watchStreams.Inc()
	defer watchStreams.Dec()
	ds.lg.Debug("opened watch stream", zap.String("observer", observer.String()))
	defer ds.lg.Debug("closed watch stream", zap.String("observer", observer.String()))

	ctx := stream.Context()
	for {
		select {
		case n, ok := <-c:
			if !ok {
				return ErrGRPCStopped
			}
			if err := stream.Send(n); err != nil {
				ds.lg.Debug("failed to send notification", zap.String("observer", observer.String()), zap.Error(err))
				return err
			}
		case <-ctx.Done():
			return ErrGRPCWatchCanceled
		case <-ds.stopc:
			return ErrGRPCStopped
		}
	}
}
