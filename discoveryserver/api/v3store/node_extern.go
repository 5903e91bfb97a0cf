package v3store

import (
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
)

// repr renders n and its descendants down to depth levels. depth < 0 is unbounded.
func (s *store) repr(n *node, depth int, now time.Time) *pb.Node {
	exp, ttl := n.expirationAndTTL(now)
	created, modified := n.CreateTime, n.ModifyTime
	ext := &pb.Node{
		Uri:        n.URI.String(),
		Type:       n.Type,
		Properties: copyProperties(n.Properties),
		Expiration: exp,
		Ttl:        ttl,
		CreateTime: &created,
		ModifyTime: &modified,
	}
	if depth == 0 || len(n.Children) == 0 {
		return ext
	}
	ext.Nodes = make([]*pb.Node, 0, len(n.Children))
	for _, k := range n.Children {
		ext.Nodes = append(ext.Nodes, s.repr(s.nodes[k], depth-1, now))
	}
	return ext
}
