package discoveryserver

import (
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3error"
	"github.com/iScript/udiscovery/discoveryserver/api/v3store"
	"github.com/iScript/udiscovery/pkg/uri"

	"go.uber.org/zap"
)

// Finder serves reads of the tree.
type Finder interface {
	LookupUri(r *pb.LookupUriRequest) *pb.LookupUriResponse
	FindNodes(r *pb.FindNodesRequest) *pb.FindNodesResponse
	FindNodeProperties(r *pb.FindNodePropertiesRequest) *pb.FindNodePropertiesResponse
}

// Directory mutates the tree.
type Directory interface {
	UpdateNode(r *pb.UpdateNodeRequest) *pb.Status
	UpdateProperty(r *pb.UpdatePropertyRequest) *pb.Status
	AddNodes(r *pb.AddNodesRequest) *pb.Status
	DeleteNodes(r *pb.DeleteNodesRequest) *pb.Status
}

// Registry records which observers watch which subtrees.
type Registry interface {
	RegisterForNotifications(r *pb.NotificationsRequest) *pb.Status
	UnregisterForNotifications(r *pb.NotificationsRequest) *pb.Status
}

var (
	_ Finder    = (*DiscoveryServer)(nil)
	_ Directory = (*DiscoveryServer)(nil)
	_ Registry  = (*DiscoveryServer)(nil)
)

// LookupUri resolves a URI to the URIs below it, or to itself for a leaf.
func (s *DiscoveryServer) LookupUri(r *pb.LookupUriRequest) *pb.LookupUriResponse {
	if r == nil {
		return &pb.LookupUriResponse{Status: statusf(v3error.EcodeInvalidArgument, "request is required")}
	}
	if s.isStopped() {
		return &pb.LookupUriResponse{Status: toStatus(errStopped)}
	}
	u, err := parseURI(r.Uri, "uri")
	if err != nil {
		return &pb.LookupUriResponse{Status: toStatus(err)}
	}
	us, err := s.store.Lookup(u)
	if err != nil {
		return &pb.LookupUriResponse{Status: toStatus(err)}
	}
	out := make([]string, len(us))
	for i := range us {
		out[i] = us[i].String()
	}
	return &pb.LookupUriResponse{Uris: out, Status: okStatus()}
}

// FindNodes returns the node at r.Uri with its descendants down to r.Depth
// levels. An absent or negative depth is unbounded.
func (s *DiscoveryServer) FindNodes(r *pb.FindNodesRequest) *pb.FindNodesResponse {
	if r == nil {
		return &pb.FindNodesResponse{Status: statusf(v3error.EcodeInvalidArgument, "request is required")}
	}
	if s.isStopped() {
		return &pb.FindNodesResponse{Status: toStatus(errStopped)}
	}
	u, err := parseURI(r.Uri, "uri")
	if err != nil {
		return &pb.FindNodesResponse{Status: toStatus(err)}
	}
	depth := -1
	if r.Depth != nil {
		depth = int(*r.Depth)
	}
	n, err := s.store.Find(u, depth)
	if err != nil {
		return &pb.FindNodesResponse{Status: toStatus(err)}
	}
	return &pb.FindNodesResponse{Nodes: []*pb.Node{n}, Status: okStatus()}
}

// FindNodeProperties returns the requested properties that exist on the
// node.
func (s *DiscoveryServer) FindNodeProperties(r *pb.FindNodePropertiesRequest) *pb.FindNodePropertiesResponse {
	if r == nil {
		return &pb.FindNodePropertiesResponse{Status: statusf(v3error.EcodeInvalidArgument, "request is required")}
	}
	if s.isStopped() {
		return &pb.FindNodePropertiesResponse{Status: toStatus(errStopped)}
	}
	u, err := parseURI(r.Uri, "uri")
	if err != nil {
		return &pb.FindNodePropertiesResponse{Status: toStatus(err)}
	}
	props, err := s.store.FindProperties(u, r.Properties)
	if err != nil {
		return &pb.FindNodePropertiesResponse{Status: toStatus(err)}
	}
	return &pb.FindNodePropertiesResponse{Properties: props, Status: okStatus()}
}

// UpdateNode replaces the properties and children of an existing node. A
// ttl of zero or more milliseconds sets the node to expire that long from
// now; an absent or negative ttl makes it permanent.
func (s *DiscoveryServer) UpdateNode(r *pb.UpdateNodeRequest) *pb.Status {
	if r == nil || r.Node == nil {
		return statusf(v3error.EcodeInvalidArgument, "node is required")
	}
	return s.applyMutation("update_node", r, func() ([]*v3store.Event, error) {
		var opts v3store.TTLOptionSet
		if r.Ttl != nil && *r.Ttl >= 0 {
			opts.ExpireTime = s.clock.Now().Add(time.Duration(*r.Ttl) * time.Millisecond)
		}
		return s.store.Update(r.Node, opts)
	})
}

// UpdateProperty sets one property of an existing node.
func (s *DiscoveryServer) UpdateProperty(r *pb.UpdatePropertyRequest) *pb.Status {
	if r == nil {
		return statusf(v3error.EcodeInvalidArgument, "request is required")
	}
	u, err := parseURI(r.Uri, "uri")
	if err != nil {
		return toStatus(err)
	}
	if r.Value == nil {
		return statusf(v3error.EcodeInvalidArgument, "value of property %q is required", r.Property)
	}
	return s.applyMutation("update_property", r, func() ([]*v3store.Event, error) {
		ev, err := s.store.UpdateProperty(u, r.Property, *r.Value)
		if err != nil {
			return nil, err
		}
		return []*v3store.Event{ev}, nil
	})
}

// AddNodes attaches the descriptors, with their descendants, under the
// parent. A descriptor naming an existing node replaces it. Nothing is
// attached unless every descriptor is valid.
func (s *DiscoveryServer) AddNodes(r *pb.AddNodesRequest) *pb.Status {
	if r == nil {
		return statusf(v3error.EcodeInvalidArgument, "request is required")
	}
	parent, err := parseURI(r.ParentUri, "parent uri")
	if err != nil {
		return toStatus(err)
	}
	return s.applyMutation("add_nodes", r, func() ([]*v3store.Event, error) {
		return s.store.InsertSubtree(parent, r.Nodes)
	})
}

// DeleteNodes removes the subtrees rooted at the given URIs. URIs that are
// not in the tree are skipped. A malformed URI fails the request before
// anything is removed.
func (s *DiscoveryServer) DeleteNodes(r *pb.DeleteNodesRequest) *pb.Status {
	if r == nil || len(r.Uris) == 0 {
		return statusf(v3error.EcodeInvalidArgument, "uris are required")
	}
	us := make([]uri.URI, 0, len(r.Uris))
	for _, text := range r.Uris {
		u, err := parseURI(text, "uri")
		if err != nil {
			return toStatus(err)
		}
		us = append(us, u)
	}
	return s.applyMutation("delete_nodes", nil, func() ([]*v3store.Event, error) {
		return s.store.Delete(us...), nil
	})
}

// RegisterForNotifications registers the observer for each URI that names
// a node. The others are skipped and the first failure is reported.
// Registering an existing pair again is OK.
func (s *DiscoveryServer) RegisterForNotifications(r *pb.NotificationsRequest) *pb.Status {
	return s.applyRegistration("register", r, func(subj, observer uri.URI) error {
		if !s.store.Exists(subj) {
			return v3error.NewError(v3error.EcodeNodeNotFound, subj.String())
		}
		s.hub.Watch(subj, observer)
		return nil
	})
}

// UnregisterForNotifications removes the observer's registration for each
// URI. Missing registrations are OK; malformed URIs are skipped and the
// first one is reported.
func (s *DiscoveryServer) UnregisterForNotifications(r *pb.NotificationsRequest) *pb.Status {
	return s.applyRegistration("unregister", r, func(subj, observer uri.URI) error {
		s.hub.Unwatch(subj, observer)
		return nil
	})
}

func (s *DiscoveryServer) applyRegistration(op string, r *pb.NotificationsRequest, fn func(subj, observer uri.URI) error) *pb.Status {
	reqID := s.reqIDGen.Next()
	observer, err := parseURI(r.ObserverUri(), "observer uri")
	if err != nil {
		return s.rejected(op, reqID, err)
	}
	if len(r.Uris) == 0 {
		return s.rejected(op, reqID, v3error.NewError(v3error.EcodeInvalidArgument, "uris are required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isStopped() {
		return s.rejected(op, reqID, errStopped)
	}

	var first error
	applied := 0
	for _, text := range r.Uris {
		subj, err := parseURI(text, "uri")
		if err == nil {
			err = fn(subj, observer)
		}
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		applied++
	}
	observersTotal.Set(float64(s.hub.Count()))
	s.lg.Debug(
		"applied registration",
		zap.String("operation", op),
		zap.Uint64("request-id", reqID),
		zap.String("observer", observer.String()),
		zap.Int("applied", applied),
		zap.Int("requested", len(r.Uris)),
	)
	if first != nil {
		return s.rejected(op, reqID, first)
	}
	mutationsApplied.WithLabelValues(op).Inc()
	return okStatus()
}
