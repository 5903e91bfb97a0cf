package v3store

import (
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/pkg/uri"
)

// Permanent is the zero expire time of a node without a TTL.
var Permanent time.Time

// node is the basic element in the store. Nodes live in the store's arena and
// refer to their children by key.
type node struct {
	URI  uri.URI
	Type pb.NodeType

	CreateTime time.Time
	ModifyTime time.Time
	ExpireTime time.Time

	Properties map[string]pb.PropertyValue
	Children   []string
}

func newNode(u uri.URI, typ pb.NodeType, props map[string]pb.PropertyValue, now time.Time) *node {
	return &node{
		URI:        u,
		Type:       typ,
		CreateTime: now,
		ModifyTime: now,
		Properties: copyProperties(props),
	}
}

func (n *node) key() string { return n.URI.Key() }

// IsPermanent function checks if the node is a permanent one.
func (n *node) IsPermanent() bool {
	return n.ExpireTime.IsZero()
}

// expirationAndTTL returns the expiration time and the remaining TTL in
// milliseconds. A node already due reports a zero TTL.
func (n *node) expirationAndTTL(now time.Time) (*time.Time, int64) {
	if n.IsPermanent() {
		return nil, 0
	}
	exp := n.ExpireTime
	ttl := exp.Sub(now).Milliseconds()
	if ttl < 0 {
		ttl = 0
	}
	return &exp, ttl
}

func (n *node) addChild(key string) {
	n.Children = append(n.Children, key)
}

func (n *node) removeChild(key string) bool {
	for i, k := range n.Children {
		if k == key {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

func (n *node) sameContent(d *pb.Node) bool {
	if n.Type != d.Type || len(n.Properties) != len(d.Properties) {
		return false
	}
	for k, v := range d.Properties {
		old, ok := n.Properties[k]
		if !ok || !old.Equal(v) {
			return false
		}
	}
	return true
}

func copyProperties(props map[string]pb.PropertyValue) map[string]pb.PropertyValue {
	if len(props) == 0 {
		return nil
	}
	cp := make(map[string]pb.PropertyValue, len(props))
	for k, v := range props {
		cp[k] = v.Normalize()
	}
	return cp
}
