package v3store

import (
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/pkg/uri"
)

const (
	Create = pb.ActionCreate
	Update = pb.ActionUpdate
	Delete = pb.ActionDelete
	Expire = pb.ActionExpire
)

// Event records one change applied to the tree.
type Event struct {
	Action string
	URI    uri.URI
}

func newEvent(action string, u uri.URI) *Event {
	return &Event{Action: action, URI: u}
}

// IsRemoval reports whether the event took a subtree out of the tree.
func (e *Event) IsRemoval() bool {
	return e.Action == Delete || e.Action == Expire
}
