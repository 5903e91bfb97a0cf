// Package v3store keeps the discovery tree: an arena of nodes addressed by
// URI, with per-node time-to-live and a snapshot codec.
package v3store

import (
	"fmt"
	"sync"
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3error"
	"github.com/iScript/udiscovery/lease"
	"github.com/iScript/udiscovery/pkg/uri"

	"github.com/jonboulle/clockwork"
)

const defaultVersion = 3

type Store interface {
	Version() int
	// Len returns the number of nodes, the root included.
	Len() int
	Exists(u uri.URI) bool

	Find(u uri.URI, depth int) (*pb.Node, error)
	FindProperties(u uri.URI, names []string) (map[string]pb.PropertyValue, error)
	Lookup(u uri.URI) ([]uri.URI, error)

	InsertSubtree(parent uri.URI, nodes []*pb.Node) ([]*Event, error)
	Update(n *pb.Node, expireOpts TTLOptionSet) ([]*Event, error)
	UpdateProperty(u uri.URI, name string, value pb.PropertyValue) (*Event, error)
	Delete(uris ...uri.URI) []*Event

	Expired(now time.Time) []lease.Item
	Expire(item lease.Item) *Event

	Save() ([]byte, error)
	Recovery(state []byte) error
	Validate() error
}

// TTLOptionSet carries the expiry of an update. A zero ExpireTime is permanent.
type TTLOptionSet struct {
	ExpireTime time.Time
}

type store struct {
	CurrentVersion int

	// nodes is the arena, keyed by URI.Key(). The root is always present.
	nodes      map[string]*node
	ttlKeyHeap *lease.ExpiryQueue // need to recovery manually
	worldLock  sync.RWMutex       // stop the world lock
	clock      clockwork.Clock
}

// New creates a store holding only the root. A nil clock uses the real clock.
func New(clock clockwork.Clock) Store {
	return newStore(clock)
}

func newStore(clock clockwork.Clock) *store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &store{
		CurrentVersion: defaultVersion,
		clock:          clock,
	}
	s.nodes, s.ttlKeyHeap = emptyTree(s.now())
	return s
}

func emptyTree(now time.Time) (map[string]*node, *lease.ExpiryQueue) {
	root := newNode(uri.Root, pb.Node_UNSPECIFIED, nil, now)
	return map[string]*node{root.key(): root}, lease.NewExpiryQueue()
}

func (s *store) now() time.Time { return s.clock.Now().UTC() }

// Version retrieves current version of the store.
func (s *store) Version() int {
	return s.CurrentVersion
}

func (s *store) Len() int {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()
	return len(s.nodes)
}

func (s *store) Exists(u uri.URI) bool {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()
	_, err := s.internalGet(u)
	return err == nil
}

// Find returns the node at u with its descendants down to depth levels.
func (s *store) Find(u uri.URI, depth int) (*pb.Node, error) {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()

	n, err := s.internalGet(u)
	if err != nil {
		return nil, err
	}
	return s.repr(n, depth, s.now()), nil
}

// FindProperties returns the named properties of the node at u. Names the node
// does not carry are omitted, so an empty names list yields an empty map.
func (s *store) FindProperties(u uri.URI, names []string) (map[string]pb.PropertyValue, error) {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()

	n, err := s.internalGet(u)
	if err != nil {
		return nil, err
	}
	props := make(map[string]pb.PropertyValue, len(names))
	for _, name := range names {
		if v, ok := n.Properties[name]; ok {
			props[name] = v.Normalize()
		}
	}
	return props, nil
}

// Lookup returns every descendant of u in depth-first order, or u alone when
// it has no children.
func (s *store) Lookup(u uri.URI) ([]uri.URI, error) {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()

	n, err := s.internalGet(u)
	if err != nil {
		return nil, err
	}
	if len(n.Children) == 0 {
		return []uri.URI{n.URI}, nil
	}
	var out []uri.URI
	s.walk(n, func(d *node) {
		if d != n {
			out = append(out, d.URI)
		}
	})
	return out, nil
}

// InsertSubtree attaches each descriptor, with its descendants, under parent.
// A descriptor whose URI already exists replaces that node and its subtree.
// Every descriptor is checked before anything is attached.
func (s *store) InsertSubtree(parent uri.URI, nodes []*pb.Node) ([]*Event, error) {
	if len(nodes) == 0 {
		return nil, v3error.NewError(v3error.EcodeInvalidArgument, "no nodes to add")
	}
	if err := validateDescriptors(parent, nodes); err != nil {
		return nil, err
	}

	s.worldLock.Lock()
	defer s.worldLock.Unlock()

	p, err := s.internalGet(parent)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var events []*Event
	for _, d := range nodes {
		u := uri.MustParse(d.Uri)
		if old, ok := s.nodes[u.Key()]; ok {
			events = append(events, s.replace(old, d, now)...)
			continue
		}
		s.build(p, d, now, nil)
		events = append(events, newEvent(Create, u))
	}
	return events, nil
}

// Update replaces the properties and children of the node named by n.Uri
// with the descriptor's, and sets its expiry.
func (s *store) Update(n *pb.Node, expireOpts TTLOptionSet) ([]*Event, error) {
	if n == nil {
		return nil, v3error.NewError(v3error.EcodeInvalidArgument, "node is required")
	}
	u, err := parseURI(n.Uri)
	if err != nil {
		return nil, err
	}
	if err := validateDescriptor(u.Parent(), n, u.IsRoot()); err != nil {
		return nil, err
	}
	if u.IsRoot() && !expireOpts.ExpireTime.IsZero() {
		return nil, v3error.NewError(v3error.EcodeInvalidArgument, "the root cannot expire")
	}

	s.worldLock.Lock()
	defer s.worldLock.Unlock()

	old, err := s.internalGet(u)
	if err != nil {
		return nil, err
	}
	events := s.replace(old, n, s.now())
	s.setExpireTime(old, expireOpts.ExpireTime)
	return events, nil
}

// UpdateProperty sets one property of the node at u.
func (s *store) UpdateProperty(u uri.URI, name string, value pb.PropertyValue) (*Event, error) {
	if name == "" {
		return nil, v3error.NewError(v3error.EcodeInvalidArgument, "property name is required")
	}
	if err := value.Validate(); err != nil {
		return nil, v3error.Errorf(v3error.EcodeInvalidArgument, "property %q: %v", name, err)
	}

	s.worldLock.Lock()
	defer s.worldLock.Unlock()

	n, err := s.internalGet(u)
	if err != nil {
		return nil, err
	}
	if n.Properties == nil {
		n.Properties = make(map[string]pb.PropertyValue, 1)
	}
	n.Properties[name] = value.Normalize()
	n.ModifyTime = s.now()
	return newEvent(Update, u), nil
}

// Delete removes the subtrees rooted at uris. URIs that are not in the tree
// are skipped. Deleting the root removes its children and keeps the root.
func (s *store) Delete(uris ...uri.URI) []*Event {
	s.worldLock.Lock()
	defer s.worldLock.Unlock()

	var events []*Event
	for _, u := range uris {
		n, ok := s.nodes[u.Key()]
		if !ok {
			continue
		}
		if u.IsRoot() {
			for _, k := range append([]string(nil), n.Children...) {
				c := s.nodes[k]
				s.remove(c)
				events = append(events, newEvent(Delete, c.URI))
			}
			n.ModifyTime = s.now()
			continue
		}
		s.remove(n)
		events = append(events, newEvent(Delete, u))
	}
	return events
}

// Expired returns the nodes whose expiry is not after now.
func (s *store) Expired(now time.Time) []lease.Item {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()
	return s.ttlKeyHeap.Due(now)
}

// Expire removes the node named by item if it still expires at item.Time and
// that instant has passed. It returns nil when nothing was removed.
func (s *store) Expire(item lease.Item) *Event {
	s.worldLock.Lock()
	defer s.worldLock.Unlock()

	n, ok := s.nodes[item.Key]
	if !ok || n.IsPermanent() || !n.ExpireTime.Equal(item.Time) || n.ExpireTime.After(s.now()) {
		return nil
	}
	s.remove(n)
	return newEvent(Expire, n.URI)
}

// internalGet resolves u one segment per level from the root. The error
// names the first prefix that is missing.
func (s *store) internalGet(u uri.URI) (*node, error) {
	n := s.nodes[uri.Root.Key()]
	for i := 1; i <= u.Len(); i++ {
		c, ok := s.nodes[u.Prefix(i).Key()]
		if !ok {
			return nil, v3error.NewError(v3error.EcodeNodeNotFound, u.Prefix(i).String())
		}
		n = c
	}
	return n, nil
}

// build creates d under p. Nodes of the subtree being replaced keep their
// creation time; retained keys whose content differs are reported as updates.
func (s *store) build(p *node, d *pb.Node, now time.Time, replaced map[string]*node) []*Event {
	u := uri.MustParse(d.Uri)
	n := newNode(u, d.Type, d.Properties, now)
	var events []*Event
	if old, ok := replaced[u.Key()]; ok {
		n.CreateTime = old.CreateTime
		if old.sameContent(d) {
			n.ModifyTime = old.ModifyTime
		} else {
			events = append(events, newEvent(Update, u))
		}
	}
	s.nodes[u.Key()] = n
	p.addChild(u.Key())
	for _, c := range d.Nodes {
		events = append(events, s.build(n, c, now, replaced)...)
	}
	return events
}

// replace overwrites n with d, rebuilding its subtree. The node itself keeps
// its place in the parent and loses any expiry.
func (s *store) replace(n *node, d *pb.Node, now time.Time) []*Event {
	replaced := make(map[string]*node)
	for _, k := range n.Children {
		s.walk(s.nodes[k], func(o *node) {
			replaced[o.key()] = o
			s.ttlKeyHeap.Unregister(o.key())
			delete(s.nodes, o.key())
		})
	}
	old := n.Children
	n.Children = nil
	n.Type = d.Type
	n.Properties = copyProperties(d.Properties)
	n.ModifyTime = now
	s.setExpireTime(n, Permanent)

	events := []*Event{newEvent(Update, n.URI)}
	for _, c := range d.Nodes {
		events = append(events, s.build(n, c, now, replaced)...)
	}
	// report the topmost dropped nodes; their subtrees went with them
	for _, k := range old {
		events = s.droppedEvents(k, replaced, events)
	}
	return events
}

func (s *store) droppedEvents(key string, replaced map[string]*node, events []*Event) []*Event {
	o, ok := replaced[key]
	if !ok {
		return events
	}
	if _, kept := s.nodes[key]; !kept {
		return append(events, newEvent(Delete, o.URI))
	}
	for _, k := range o.Children {
		events = s.droppedEvents(k, replaced, events)
	}
	return events
}

// remove detaches n from its parent and drops its subtree from the arena.
func (s *store) remove(n *node) {
	if p, ok := s.nodes[n.URI.Parent().Key()]; ok {
		p.removeChild(n.key())
		p.ModifyTime = s.now()
	}
	var keys []string
	s.walk(n, func(d *node) { keys = append(keys, d.key()) })
	for _, k := range keys {
		s.ttlKeyHeap.Unregister(k)
		delete(s.nodes, k)
	}
}

func (s *store) setExpireTime(n *node, expireTime time.Time) {
	if expireTime.IsZero() {
		n.ExpireTime = Permanent
	} else {
		n.ExpireTime = expireTime.UTC()
	}
	if n.IsPermanent() {
		s.ttlKeyHeap.Unregister(n.key())
		return
	}
	s.ttlKeyHeap.RegisterOrUpdate(n.key(), n.ExpireTime)
}

// walk visits n and its descendants depth-first, children in list order.
func (s *store) walk(n *node, fn func(*node)) {
	fn(n)
	for _, k := range n.Children {
		if c, ok := s.nodes[k]; ok {
			s.walk(c, fn)
		}
	}
}

func parseURI(text string) (uri.URI, error) {
	u, err := uri.Parse(text)
	if err != nil {
		return uri.URI{}, v3error.NewError(v3error.EcodeInvalidArgument, err.Error())
	}
	return u, nil
}

func validateDescriptors(parent uri.URI, nodes []*pb.Node) error {
	seen := make(map[string]struct{}, len(nodes))
	for _, d := range nodes {
		if err := validateDescriptor(parent, d, false); err != nil {
			return err
		}
		if _, dup := seen[d.Uri]; dup {
			return v3error.Errorf(v3error.EcodeInvalidArgument, "duplicate uri %s", d.Uri)
		}
		seen[d.Uri] = struct{}{}
	}
	return nil
}

// validateDescriptor checks d and its descendants. d must name a child of
// parent unless isRoot is set.
func validateDescriptor(parent uri.URI, d *pb.Node, isRoot bool) error {
	if d == nil {
		return v3error.NewError(v3error.EcodeInvalidArgument, "nil node")
	}
	u, err := parseURI(d.Uri)
	if err != nil {
		return err
	}
	if !isRoot && !u.IsChildOf(parent) {
		return v3error.Errorf(v3error.EcodeInvalidArgument, "%s is not a child of %s", u, parent)
	}
	if !d.Type.Valid() {
		return v3error.Errorf(v3error.EcodeInvalidArgument, "%s: unknown node type %d", u, d.Type)
	}
	for name, v := range d.Properties {
		if name == "" {
			return v3error.Errorf(v3error.EcodeInvalidArgument, "%s: empty property name", u)
		}
		if err := v.Validate(); err != nil {
			return v3error.Errorf(v3error.EcodeInvalidArgument, "%s: property %q: %v", u, name, err)
		}
	}
	return validateDescriptors(u, d.Nodes)
}

// Validate checks the structural invariants of the tree.
func (s *store) Validate() error {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()
	return validateTree(s.nodes, s.ttlKeyHeap)
}

func validateTree(nodes map[string]*node, ttl *lease.ExpiryQueue) error {
	root, ok := nodes[uri.Root.Key()]
	if !ok {
		return fmt.Errorf("missing root")
	}
	if !root.URI.IsRoot() {
		return fmt.Errorf("root is keyed by %s", root.URI)
	}
	reached := make(map[string]int, len(nodes))
	var visit func(n *node) error
	visit = func(n *node) error {
		reached[n.key()]++
		if reached[n.key()] > 1 {
			return fmt.Errorf("%s is reachable more than once", n.URI)
		}
		for _, k := range n.Children {
			c, ok := nodes[k]
			if !ok {
				return fmt.Errorf("%s lists missing child %s", n.URI, k)
			}
			if !c.URI.IsChildOf(n.URI) {
				return fmt.Errorf("%s lists %s which is not a one-segment extension", n.URI, c.URI)
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(root); err != nil {
		return err
	}
	expiring := 0
	for k, n := range nodes {
		if k != n.key() {
			return fmt.Errorf("node %s is keyed by %s", n.URI, k)
		}
		if reached[k] == 0 {
			return fmt.Errorf("%s is not listed by its parent", n.URI)
		}
		if !n.IsPermanent() {
			expiring++
		}
	}
	if ttl != nil && ttl.Len() != expiring {
		return fmt.Errorf("ttl queue holds %d keys, %d nodes expire", ttl.Len(), expiring)
	}
	return nil
}
