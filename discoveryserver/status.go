package discoveryserver

import (
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3error"

	"google.golang.org/grpc/codes"
)

func okStatus() *pb.Status { return &pb.Status{Code: codes.OK} }

// toStatus maps err to the status carried in a response. Errors that are
// not *v3error.Error are Internal.
func toStatus(err error) *pb.Status {
	if err == nil {
		return okStatus()
	}
	return &pb.Status{Code: v3error.Code(err), Message: err.Error()}
}

func statusf(ecode int, format string, args ...interface{}) *pb.Status {
	return toStatus(v3error.Errorf(ecode, format, args...))
}

var errStopped = v3error.NewError(v3error.EcodeUnavailable, "server stopped")
