package v3store

import (
	"errors"
	"testing"
	"time"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3error"
	"github.com/iScript/udiscovery/pkg/uri"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURI(s string) uri.URI { return uri.MustParse(s) }

func props(kv ...interface{}) map[string]pb.PropertyValue {
	m := make(map[string]pb.PropertyValue)
	for i := 0; i < len(kv); i += 2 {
		name := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			m[name] = pb.StringValue(v)
		case int:
			m[name] = pb.IntegerValue(int64(v))
		case bool:
			m[name] = pb.BoolValue(v)
		case float64:
			m[name] = pb.DoubleValue(v)
		}
	}
	return m
}

func leaf(u string, kv ...interface{}) *pb.Node {
	return &pb.Node{Uri: u, Properties: props(kv...)}
}

func dir(u string, children ...*pb.Node) *pb.Node {
	return &pb.Node{Uri: u, Nodes: children}
}

func uris(us []uri.URI) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.String()
	}
	return out
}

func eventsOf(es []*Event) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Action + " " + e.URI.String()
	}
	return out
}

func isCode(err error, code int) bool { return v3error.IsCode(err, code) }

// newTestStore builds //a with children //a/b (holding //a/b/c) and //a/d.
func newTestStore(t *testing.T, clock clockwork.Clock) *store {
	t.Helper()
	s := newStore(clock)
	_, err := s.InsertSubtree(uri.Root, []*pb.Node{
		dir("//a",
			dir("//a/b", leaf("//a/b/c", "k", "v")),
			leaf("//a/d"),
		),
	})
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	return s
}

func TestStoreNewHasOnlyRoot(t *testing.T) {
	s := newStore(nil)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Exists(uri.Root))
	n, err := s.Find(uri.Root, -1)
	require.NoError(t, err)
	assert.Equal(t, "/", n.Uri)
	assert.Empty(t, n.Nodes)
	assert.Equal(t, 3, s.Version())
}

func TestStoreFindDepth(t *testing.T) {
	s := newTestStore(t, nil)

	n, err := s.Find(mustURI("//a"), 0)
	require.NoError(t, err)
	assert.Equal(t, "//a", n.Uri)
	assert.Empty(t, n.Nodes)

	n, err = s.Find(mustURI("//a"), 1)
	require.NoError(t, err)
	require.Len(t, n.Nodes, 2)
	assert.Equal(t, "//a/b", n.Nodes[0].Uri)
	assert.Equal(t, "//a/d", n.Nodes[1].Uri)
	assert.Empty(t, n.Nodes[0].Nodes)

	n, err = s.Find(mustURI("//a"), -1)
	require.NoError(t, err)
	require.Len(t, n.Nodes[0].Nodes, 1)
	c := n.Nodes[0].Nodes[0]
	assert.Equal(t, "//a/b/c", c.Uri)
	assert.Equal(t, pb.StringValue("v"), c.Properties["k"])
	assert.NotNil(t, c.CreateTime)

	_, err = s.Find(mustURI("//a/x/y"), -1)
	require.True(t, isCode(err, v3error.EcodeNodeNotFound))
	var e *v3error.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "//a/x", e.Cause)
}

func TestStoreFindProperties(t *testing.T) {
	s := newStore(nil)
	_, err := s.InsertSubtree(uri.Root, []*pb.Node{leaf("//n", "x", 1, "y", true, "z", "s")})
	require.NoError(t, err)

	got, err := s.FindProperties(mustURI("//n"), []string{"x", "missing"})
	require.NoError(t, err)
	assert.Equal(t, props("x", 1), got)

	got, err = s.FindProperties(mustURI("//n"), []string{"z", "y", "x"})
	require.NoError(t, err)
	assert.Equal(t, props("x", 1, "y", true, "z", "s"), got)

	for _, names := range [][]string{nil, {}} {
		got, err = s.FindProperties(mustURI("//n"), names)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got, "no names requested, none returned")
	}

	_, err = s.FindProperties(mustURI("//nope"), []string{"x"})
	assert.True(t, isCode(err, v3error.EcodeNodeNotFound))
}

func TestStoreFindReturnsCopies(t *testing.T) {
	s := newTestStore(t, nil)
	n, err := s.Find(mustURI("//a/b/c"), 0)
	require.NoError(t, err)
	n.Properties["k"] = pb.StringValue("mutated")

	got, err := s.FindProperties(mustURI("//a/b/c"), []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, pb.StringValue("v"), got["k"])
}

func TestStoreLookup(t *testing.T) {
	s := newTestStore(t, nil)

	got, err := s.Lookup(mustURI("//a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"//a/b", "//a/b/c", "//a/d"}, uris(got))

	got, err = s.Lookup(mustURI("//a/d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"//a/d"}, uris(got))

	got, err = s.Lookup(uri.Root)
	require.NoError(t, err)
	assert.Equal(t, []string{"//a", "//a/b", "//a/b/c", "//a/d"}, uris(got))

	_, err = s.Lookup(mustURI("//z"))
	assert.True(t, isCode(err, v3error.EcodeNodeNotFound))
}

func TestStoreInsertSubtree(t *testing.T) {
	s := newTestStore(t, nil)

	es, err := s.InsertSubtree(mustURI("//a/b"), []*pb.Node{leaf("//a/b/e"), dir("//a/b/f", leaf("//a/b/f/g"))})
	require.NoError(t, err)
	assert.Equal(t, []string{"create //a/b/e", "create //a/b/f"}, eventsOf(es))

	got, err := s.Lookup(mustURI("//a/b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"//a/b/c", "//a/b/e", "//a/b/f", "//a/b/f/g"}, uris(got))
	require.NoError(t, s.Validate())

	_, err = s.InsertSubtree(mustURI("//missing"), []*pb.Node{leaf("//missing/x")})
	assert.True(t, isCode(err, v3error.EcodeNodeNotFound))
}

func TestStoreInsertSubtreeAllOrNothing(t *testing.T) {
	s := newTestStore(t, nil)
	before, err := s.Save()
	require.NoError(t, err)

	tests := [][]*pb.Node{
		{leaf("//a/ok"), leaf("//b/wrong-parent")},
		{leaf("//a/ok"), dir("//a/p", leaf("//a/p/q/too-deep"))},
		{leaf("//a/ok"), leaf("not a uri")},
		{leaf("//a/ok"), {Uri: "//a/bad", Properties: map[string]pb.PropertyValue{"x": {Kind: "nope"}}}},
		{leaf("//a/ok"), {Uri: "//a/bad", Properties: map[string]pb.PropertyValue{"": pb.BoolValue(true)}}},
		{leaf("//a/ok"), {Uri: "//a/bad", Type: pb.NodeType(99)}},
		{leaf("//a/dup"), leaf("//a/dup")},
		{leaf("//a/ok"), nil},
		{},
	}
	for i, nodes := range tests {
		_, err := s.InsertSubtree(mustURI("//a"), nodes)
		assert.Truef(t, isCode(err, v3error.EcodeInvalidArgument), "#%d: got %v", i, err)
	}
	after, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestStoreInsertUpserts(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := newTestStore(t, fc)
	created, err := s.Find(mustURI("//a/b"), 0)
	require.NoError(t, err)

	fc.Advance(time.Second)
	es, err := s.InsertSubtree(mustURI("//a"), []*pb.Node{dir("//a/b", leaf("//a/b/c", "k", "v2"), leaf("//a/b/new"))})
	require.NoError(t, err)
	assert.Equal(t, []string{"update //a/b", "update //a/b/c"}, eventsOf(es))

	got, err := s.Lookup(mustURI("//a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"//a/b", "//a/b/c", "//a/b/new", "//a/d"}, uris(got), "replaced node keeps its place")

	n, err := s.Find(mustURI("//a/b"), 0)
	require.NoError(t, err)
	assert.True(t, created.CreateTime.Equal(*n.CreateTime))
	assert.True(t, n.ModifyTime.After(*n.CreateTime))

	c, err := s.Find(mustURI("//a/b/c"), 0)
	require.NoError(t, err)
	assert.Equal(t, props("k", "v2"), c.Properties)
	require.NoError(t, s.Validate())
}

func TestStoreUpdate(t *testing.T) {
	s := newTestStore(t, nil)

	es, err := s.Update(&pb.Node{Uri: "//a", Properties: props("p", 1), Nodes: []*pb.Node{dir("//a/b")}}, TTLOptionSet{})
	require.NoError(t, err)
	assert.Equal(t, []string{"update //a", "delete //a/b/c", "delete //a/d"}, eventsOf(es))

	got, err := s.Lookup(mustURI("//a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"//a/b"}, uris(got))
	a, err := s.Find(mustURI("//a"), 0)
	require.NoError(t, err)
	assert.Equal(t, props("p", 1), a.Properties)
	require.NoError(t, s.Validate())

	_, err = s.Update(leaf("//zz"), TTLOptionSet{})
	assert.True(t, isCode(err, v3error.EcodeNodeNotFound))
	_, err = s.Update(nil, TTLOptionSet{})
	assert.True(t, isCode(err, v3error.EcodeInvalidArgument))
	_, err = s.Update(&pb.Node{Uri: "//a", Nodes: []*pb.Node{leaf("//x")}}, TTLOptionSet{})
	assert.True(t, isCode(err, v3error.EcodeInvalidArgument))
	_, err = s.Update(&pb.Node{Uri: "/"}, TTLOptionSet{ExpireTime: time.Now()})
	assert.True(t, isCode(err, v3error.EcodeInvalidArgument))
}

func TestStoreUpdateTTL(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := newTestStore(t, fc)

	exp := fc.Now().Add(3 * time.Second)
	_, err := s.Update(leaf("//a/d"), TTLOptionSet{ExpireTime: exp})
	require.NoError(t, err)
	n, err := s.Find(mustURI("//a/d"), 0)
	require.NoError(t, err)
	require.NotNil(t, n.Expiration)
	assert.True(t, exp.Equal(*n.Expiration))
	assert.Equal(t, int64(3000), n.Ttl)
	require.NoError(t, s.Validate())

	assert.Empty(t, s.Expired(fc.Now()))
	fc.Advance(3 * time.Second)
	due := s.Expired(fc.Now())
	require.Len(t, due, 1)
	assert.Equal(t, "//a/d", due[0].Key)

	// a clearing update between collection and expiry wins
	_, err = s.Update(leaf("//a/d"), TTLOptionSet{})
	require.NoError(t, err)
	assert.Nil(t, s.Expire(due[0]))
	assert.True(t, s.Exists(mustURI("//a/d")))
	assert.Empty(t, s.Expired(fc.Now()))
	require.NoError(t, s.Validate())
}

func TestStoreExpire(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := newTestStore(t, fc)
	_, err := s.Update(dir("//a/b", leaf("//a/b/c")), TTLOptionSet{ExpireTime: fc.Now().Add(time.Second)})
	require.NoError(t, err)

	fc.Advance(500 * time.Millisecond)
	n, err := s.Find(mustURI("//a/b"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(500), n.Ttl)

	fc.Advance(500 * time.Millisecond)
	due := s.Expired(fc.Now())
	require.Len(t, due, 1)
	e := s.Expire(due[0])
	require.NotNil(t, e)
	assert.Equal(t, Expire, e.Action)
	assert.Equal(t, "//a/b", e.URI.String())
	assert.False(t, s.Exists(mustURI("//a/b/c")))
	assert.Nil(t, s.Expire(due[0]), "a second expire is a no-op")
	require.NoError(t, s.Validate())
}

func TestStoreUpdateProperty(t *testing.T) {
	s := newTestStore(t, nil)

	e, err := s.UpdateProperty(mustURI("//a/d"), "port", pb.IntegerValue(8080))
	require.NoError(t, err)
	assert.Equal(t, "update //a/d", e.Action+" "+e.URI.String())
	e, err = s.UpdateProperty(mustURI("//a/d"), "port", pb.IntegerValue(9090))
	require.NoError(t, err)
	require.NotNil(t, e)

	p, err := s.FindProperties(mustURI("//a/d"), []string{"port"})
	require.NoError(t, err)
	assert.Equal(t, props("port", 9090), p)

	_, err = s.UpdateProperty(mustURI("//a/none"), "port", pb.IntegerValue(1))
	assert.True(t, isCode(err, v3error.EcodeNodeNotFound))
	_, err = s.UpdateProperty(mustURI("//a/d"), "", pb.IntegerValue(1))
	assert.True(t, isCode(err, v3error.EcodeInvalidArgument))
	_, err = s.UpdateProperty(mustURI("//a/d"), "x", pb.PropertyValue{})
	assert.True(t, isCode(err, v3error.EcodeInvalidArgument))
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t, nil)

	es := s.Delete(mustURI("//a/b"), mustURI("//a/b/c"), mustURI("//never"))
	assert.Equal(t, []string{"delete //a/b"}, eventsOf(es))
	assert.False(t, s.Exists(mustURI("//a/b")))
	assert.False(t, s.Exists(mustURI("//a/b/c")))
	require.NoError(t, s.Validate())

	assert.Empty(t, s.Delete(mustURI("//a/b")), "deleting again is a no-op")

	es = s.Delete(uri.Root)
	assert.Equal(t, []string{"delete //a"}, eventsOf(es))
	assert.True(t, s.Exists(uri.Root))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Validate())
}

func TestStoreSaveRecovery(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := newTestStore(t, fc)
	_, err := s.UpdateProperty(mustURI("//a/d"), "when", pb.TimestampValue(fc.Now()))
	require.NoError(t, err)
	_, err = s.UpdateProperty(mustURI("//a/d"), "raw", pb.BytesValue([]byte{1, 2, 3}))
	require.NoError(t, err)
	_, err = s.Update(leaf("//a/b/c", "k", "v"), TTLOptionSet{ExpireTime: fc.Now().Add(time.Minute)})
	require.NoError(t, err)

	b1, err := s.Save()
	require.NoError(t, err)
	b2, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "unchanged tree must encode identically")

	r := newStore(fc)
	require.NoError(t, r.Recovery(b1))
	require.NoError(t, r.Validate())
	b3, err := r.Save()
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b3))

	want, err := s.Find(uri.Root, -1)
	require.NoError(t, err)
	got, err := r.Find(uri.Root, -1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	fc.Advance(time.Minute)
	due := r.Expired(fc.Now())
	require.Len(t, due, 1)
	assert.Equal(t, "//a/b/c", due[0].Key)
}

func TestStoreRecoveryFailsClosed(t *testing.T) {
	s := newTestStore(t, nil)
	before, err := s.Save()
	require.NoError(t, err)

	bad := []string{
		`not json`,
		`{"version":2,"nodes":[{"uri":"/"}]}`,
		`{"version":3,"nodes":[]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["//x"]}]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["//x"]},{"uri":"//x"},{"uri":"//y"}]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["//x/y"]},{"uri":"//x/y"}]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["//x","//x"]},{"uri":"//x"}]}`,
		`{"version":3,"nodes":[{"uri":"/"},{"uri":"/"}]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["x"]},{"uri":"x"}]}`,
		`{"version":3,"nodes":[{"uri":"/","expireTime":"2020-01-01T00:00:00Z"}]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["//x"]},{"uri":"//x","properties":{"p":{"kind":"?"}}}]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["//x"]},{"uri":"//x","type":42}]}`,
		`{"version":3,"nodes":[{"uri":"/","children":["//x"]},{"uri":"//x","type":"GALAXY"}]}`,
	}
	for i, state := range bad {
		err := s.Recovery([]byte(state))
		assert.Truef(t, isCode(err, v3error.EcodeCorrupt), "#%d: got %v", i, err)
	}
	after, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}
