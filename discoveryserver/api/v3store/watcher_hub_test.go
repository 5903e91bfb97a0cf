package v3store

import (
	"testing"

	"github.com/iScript/udiscovery/pkg/uri"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observationsOf(obs []Observation) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.Observer.String() + " <- " + o.Action + " " + o.URI.String() + " via " + o.Subject.String()
	}
	return out
}

func TestWatcherHubWatchIdempotent(t *testing.T) {
	wh := NewWatcherHub()
	assert.True(t, wh.Watch(mustURI("//a"), mustURI("//obs/1")))
	assert.False(t, wh.Watch(mustURI("//a"), mustURI("//obs/1")))
	assert.True(t, wh.Watch(mustURI("//a"), mustURI("//obs/2")))
	assert.Equal(t, 2, wh.Count())
	assert.Equal(t, []string{"//obs/1", "//obs/2"}, uris(wh.Observers(mustURI("//a"))))

	assert.True(t, wh.Unwatch(mustURI("//a"), mustURI("//obs/1")))
	assert.False(t, wh.Unwatch(mustURI("//a"), mustURI("//obs/1")))
	assert.False(t, wh.Unwatch(mustURI("//b"), mustURI("//obs/1")))
	assert.Equal(t, 1, wh.Count())
	assert.True(t, wh.Unwatch(mustURI("//a"), mustURI("//obs/2")))
	assert.Nil(t, wh.Observers(mustURI("//a")))
	assert.Equal(t, 0, wh.Count())
}

func TestWatcherHubNotifyAncestors(t *testing.T) {
	wh := NewWatcherHub()
	wh.Watch(mustURI("//a"), mustURI("//o/a"))
	wh.Watch(mustURI("//a/b"), mustURI("//o/ab"))
	wh.Watch(mustURI("//a/b"), mustURI("//o/a"))
	wh.Watch(mustURI("//a/b/c"), mustURI("//o/abc"))
	wh.Watch(mustURI("//x"), mustURI("//o/x"))
	wh.Watch(uri.Root, mustURI("//o/root"))

	got := wh.Notify([]*Event{newEvent(Update, mustURI("//a/b"))})
	assert.Equal(t, []string{
		"//o/a <- update //a/b via //a/b",
		"//o/ab <- update //a/b via //a/b",
		"//o/root <- update //a/b via /",
	}, observationsOf(got), "descendant subjects are not told about an update above them")
	assert.Equal(t, 6, wh.Count())
}

func TestWatcherHubNotifyRemoval(t *testing.T) {
	wh := NewWatcherHub()
	wh.Watch(mustURI("//a"), mustURI("//o/a"))
	wh.Watch(mustURI("//a/b"), mustURI("//o/ab"))
	wh.Watch(mustURI("//a/b/c"), mustURI("//o/abc"))
	wh.Watch(mustURI("//a/b/c"), mustURI("//o/ab"))
	wh.Watch(mustURI("//a/bb"), mustURI("//o/abb"))

	got := wh.Notify([]*Event{newEvent(Delete, mustURI("//a/b"))})
	assert.Equal(t, []string{
		"//o/ab <- delete //a/b via //a/b",
		"//o/a <- delete //a/b via //a",
		"//o/abc <- delete //a/b via //a/b/c",
	}, observationsOf(got))

	assert.Nil(t, wh.Observers(mustURI("//a/b")))
	assert.Nil(t, wh.Observers(mustURI("//a/b/c")))
	assert.Equal(t, []string{"//o/abb"}, uris(wh.Observers(mustURI("//a/bb"))), "siblings sharing a prefix survive")
	assert.Equal(t, 2, wh.Count())
}

func TestWatcherHubPrune(t *testing.T) {
	wh := NewWatcherHub()
	wh.Watch(mustURI("//a"), mustURI("//o/1"))
	wh.Watch(mustURI("//b"), mustURI("//o/1"))
	wh.Watch(mustURI("//b"), mustURI("//o/2"))

	n := wh.Prune(func(u uri.URI) bool { return u.Equal(mustURI("//a")) })
	require.Equal(t, 2, n)
	assert.Equal(t, 1, wh.Count())
	assert.Nil(t, wh.Observers(mustURI("//b")))
}
