package v3rpc

import (
	"context"
	"errors"

	"github.com/iScript/udiscovery/discoveryserver/api/v3error"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrGRPCStopped         = status.New(codes.Unavailable, "udiscoveryserver: server stopped").Err()
	ErrGRPCNoObserver      = status.New(codes.InvalidArgument, "udiscoveryserver: observer uri is required").Err()
	ErrGRPCWatchCanceled   = status.New(codes.Canceled, "udiscoveryserver: watch canceled").Err()
	ErrGRPCRequestCanceled = status.New(codes.Canceled, "udiscoveryserver: request canceled").Err()
	ErrGRPCTimeout         = status.New(codes.DeadlineExceeded, "udiscoveryserver: request timed out").Err()
)

// togRPCError converts err into a gRPC status error. Errors that already
// carry a status pass through.
func togRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return ErrGRPCRequestCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrGRPCTimeout
	}
	var e *v3error.Error
	if errors.As(err, &e) {
		return status.Error(e.Code(), e.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}
