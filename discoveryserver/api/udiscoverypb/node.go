// Package udiscoverypb defines the messages and service of the udiscovery
// gRPC API. Messages are plain Go structs carried by the JSON codec in codec.go.
package udiscoverypb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type NodeType int32

const (
	Node_UNSPECIFIED NodeType = 0
	Node_DOMAIN      NodeType = 1
	Node_DEVICE      NodeType = 2
	Node_ENTITY      NodeType = 3
	Node_VERSION     NodeType = 4
	Node_TOPIC       NodeType = 5
	Node_METHOD      NodeType = 6
	Node_RESOURCE    NodeType = 7
)

var NodeType_name = map[NodeType]string{
	Node_UNSPECIFIED: "UNSPECIFIED",
	Node_DOMAIN:      "DOMAIN",
	Node_DEVICE:      "DEVICE",
	Node_ENTITY:      "ENTITY",
	Node_VERSION:     "VERSION",
	Node_TOPIC:       "TOPIC",
	Node_METHOD:      "METHOD",
	Node_RESOURCE:    "RESOURCE",
}

var NodeType_value = map[string]NodeType{
	"UNSPECIFIED": Node_UNSPECIFIED,
	"DOMAIN":      Node_DOMAIN,
	"DEVICE":      Node_DEVICE,
	"ENTITY":      Node_ENTITY,
	"VERSION":     Node_VERSION,
	"TOPIC":       Node_TOPIC,
	"METHOD":      Node_METHOD,
	"RESOURCE":    Node_RESOURCE,
}

func (t NodeType) String() string {
	if s, ok := NodeType_name[t]; ok {
		return s
	}
	return strconv.Itoa(int(t))
}

func (t NodeType) Valid() bool {
	_, ok := NodeType_name[t]
	return ok
}

func (t NodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts either the enum name or its number.
func (t *NodeType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, ok := NodeType_value[s]
		if !ok {
			return fmt.Errorf("udiscoverypb: unknown node type %q", s)
		}
		*t = v
		return nil
	}
	var n int32
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = NodeType(n)
	return nil
}

// Node describes a tree node and, optionally, its descendants.
//
// Expiration, Ttl, CreateTime and ModifyTime are filled in by reads and ignored
// on writes.
type Node struct {
	Uri        string                   `json:"uri"`
	Type       NodeType                 `json:"type,omitempty"`
	Properties map[string]PropertyValue `json:"properties,omitempty"`
	Nodes      []*Node                  `json:"nodes,omitempty"`

	Expiration *Timestamp `json:"expiration,omitempty"`
	// Ttl is the remaining time to live in milliseconds.
	Ttl        int64      `json:"ttl,omitempty"`
	CreateTime *Timestamp `json:"createTime,omitempty"`
	ModifyTime *Timestamp `json:"modifyTime,omitempty"`
}

func (n *Node) GetUri() string {
	if n == nil {
		return ""
	}
	return n.Uri
}

// Walk calls fn for n and every descendant in depth-first order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Nodes {
		c.Walk(fn)
	}
}
