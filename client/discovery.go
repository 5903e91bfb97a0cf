package client

import (
	"context"
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
)

// LookupUri returns the URIs below u, or u itself when it is a leaf.
func (c *Client) LookupUri(ctx context.Context, u string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.rpc.LookupUri(ctx, &pb.LookupUriRequest{Uri: u})
	if err != nil {
		return nil, err
	}
	if err := resp.Status.Err(); err != nil {
		return nil, err
	}
	return resp.Uris, nil
}

type findOp struct {
	depth *int32
}

// FindOption configures FindNodes.
type FindOption func(*findOp)

// WithDepth limits FindNodes to d levels below the node. Zero returns the
// node alone. Without it the whole subtree is returned.
func WithDepth(d int) FindOption {
	return func(op *findOp) {
		v := int32(d)
		op.depth = &v
	}
}

// FindNodes returns the node at u with its descendants.
func (c *Client) FindNodes(ctx context.Context, u string, opts ...FindOption) (*pb.Node, error) {
	op := &findOp{}
	for _, o := range opts {
		o(op)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.rpc.FindNodes(ctx, &pb.FindNodesRequest{Uri: u, Depth: op.depth})
	if err != nil {
		return nil, err
	}
	if err := resp.Status.Err(); err != nil {
		return nil, err
	}
	if len(resp.Nodes) == 0 {
		return nil, nil
	}
	return resp.Nodes[0], nil
}

// FindNodeProperties returns the named properties of the node at u that
// exist.
func (c *Client) FindNodeProperties(ctx context.Context, u string, names ...string) (map[string]pb.PropertyValue, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.rpc.FindNodeProperties(ctx, &pb.FindNodePropertiesRequest{Uri: u, Properties: names})
	if err != nil {
		return nil, err
	}
	if err := resp.Status.Err(); err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

type updateOp struct {
	ttl *int32
}

// UpdateOption configures UpdateNode.
type UpdateOption func(*updateOp)

// WithTTL makes the node expire d from now. It is truncated to
// milliseconds.
func WithTTL(d time.Duration) UpdateOption {
	return func(op *updateOp) {
		v := int32(d / time.Millisecond)
		op.ttl = &v
	}
}

// UpdateNode replaces the properties and children of the existing node
// n.Uri. Without WithTTL the node becomes permanent.
func (c *Client) UpdateNode(ctx context.Context, n *pb.Node, opts ...UpdateOption) error {
	op := &updateOp{}
	for _, o := range opts {
		o(op)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return statusErr(c.rpc.UpdateNode(ctx, &pb.UpdateNodeRequest{Node: n, Ttl: op.ttl}))
}

// UpdateProperty sets one property of the node at u.
func (c *Client) UpdateProperty(ctx context.Context, u, name string, v pb.PropertyValue) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return statusErr(c.rpc.UpdateProperty(ctx, &pb.UpdatePropertyRequest{Uri: u, Property: name, Value: &v}))
}

// AddNodes attaches nodes, with their descendants, under parent. Either
// all of them are added or none.
func (c *Client) AddNodes(ctx context.Context, parent string, nodes ...*pb.Node) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return statusErr(c.rpc.AddNodes(ctx, &pb.AddNodesRequest{ParentUri: parent, Nodes: nodes}))
}

// DeleteNodes removes the subtrees rooted at uris. Missing URIs are skipped.
func (c *Client) DeleteNodes(ctx context.Context, uris ...string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return statusErr(c.rpc.DeleteNodes(ctx, &pb.DeleteNodesRequest{Uris: uris}))
}

// Register asks for notifications to observer about changes at or below
// each of uris.
func (c *Client) Register(ctx context.Context, observer string, uris ...string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return statusErr(c.rpc.RegisterForNotifications(ctx, &pb.NotificationsRequest{
		Observer: &pb.ObserverInfo{Uri: observer},
		Uris:     uris,
	}))
}

// Unregister removes registrations made by Register.
func (c *Client) Unregister(ctx context.Context, observer string, uris ...string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return statusErr(c.rpc.UnregisterForNotifications(ctx, &pb.NotificationsRequest{
		Observer: &pb.ObserverInfo{Uri: observer},
		Uris:     uris,
	}))
}
