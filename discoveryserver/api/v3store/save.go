package v3store

import (
	"encoding/json"
	"fmt"
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3error"
	"github.com/iScript/udiscovery/lease"
	"github.com/iScript/udiscovery/pkg/uri"
)

type savedTree struct {
	Version int         `json:"version"`
	Nodes   []savedNode `json:"nodes"`
}

type savedNode struct {
	URI        string                      `json:"uri"`
	Type       pb.NodeType                 `json:"type,omitempty"`
	Properties map[string]pb.PropertyValue `json:"properties,omitempty"`
	Children   []string                    `json:"children,omitempty"`
	ExpireTime *time.Time                  `json:"expireTime,omitempty"`
	CreateTime time.Time                   `json:"createTime"`
	ModifyTime time.Time                   `json:"modifyTime"`
}

// Save encodes the whole tree. Nodes are listed depth-first from the root,
// children in list order; properties are sorted by name, so an unchanged tree
// always encodes to the same bytes.
func (s *store) Save() ([]byte, error) {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()

	t := savedTree{Version: s.CurrentVersion, Nodes: make([]savedNode, 0, len(s.nodes))}
	s.walk(s.nodes[uri.Root.Key()], func(n *node) {
		sn := savedNode{
			URI:        n.URI.String(),
			Type:       n.Type,
			Properties: n.Properties,
			Children:   n.Children,
			CreateTime: n.CreateTime,
			ModifyTime: n.ModifyTime,
		}
		if !n.IsPermanent() {
			exp := n.ExpireTime
			sn.ExpireTime = &exp
		}
		t.Nodes = append(t.Nodes, sn)
	})
	return json.Marshal(t)
}

// Recovery replaces the tree with the one encoded in state. The new tree is
// built and checked in full before it is swapped in; on error the current
// tree is untouched.
func (s *store) Recovery(state []byte) error {
	var t savedTree
	if err := json.Unmarshal(state, &t); err != nil {
		return v3error.Errorf(v3error.EcodeCorrupt, "decode tree: %v", err)
	}
	if t.Version != defaultVersion {
		return v3error.Errorf(v3error.EcodeCorrupt, "unsupported tree version %d", t.Version)
	}

	nodes := make(map[string]*node, len(t.Nodes))
	ttl := lease.NewExpiryQueue()
	for _, sn := range t.Nodes {
		u, err := uri.Parse(sn.URI)
		if err != nil {
			return v3error.Errorf(v3error.EcodeCorrupt, "node uri: %v", err)
		}
		if _, dup := nodes[u.Key()]; dup {
			return v3error.Errorf(v3error.EcodeCorrupt, "duplicate node %s", u)
		}
		if !sn.Type.Valid() {
			return v3error.Errorf(v3error.EcodeCorrupt, "%s: unknown node type %d", u, int32(sn.Type))
		}
		for name, v := range sn.Properties {
			if err := v.Validate(); err != nil {
				return v3error.Errorf(v3error.EcodeCorrupt, "%s: property %q: %v", u, name, err)
			}
		}
		n := &node{
			URI:        u,
			Type:       sn.Type,
			CreateTime: sn.CreateTime.UTC(),
			ModifyTime: sn.ModifyTime.UTC(),
			Properties: copyProperties(sn.Properties),
			Children:   append([]string(nil), sn.Children...),
		}
		if sn.ExpireTime != nil {
			if u.IsRoot() {
				return v3error.NewError(v3error.EcodeCorrupt, "root has an expire time")
			}
			n.ExpireTime = sn.ExpireTime.UTC()
			ttl.RegisterOrUpdate(u.Key(), n.ExpireTime)
		}
		nodes[u.Key()] = n
	}
	if err := validateTree(nodes, ttl); err != nil {
		return v3error.Errorf(v3error.EcodeCorrupt, "tree: %v", err)
	}

	s.worldLock.Lock()
	defer s.worldLock.Unlock()
	s.nodes, s.ttlKeyHeap = nodes, ttl
	return nil
}

// String dumps the tree for debugging.
func (s *store) String() string {
	b, err := s.Save()
	if err != nil {
		return fmt.Sprintf("<unprintable store: %v>", err)
	}
	return string(b)
}
