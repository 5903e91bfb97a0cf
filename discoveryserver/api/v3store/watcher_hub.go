package v3store

import (
	"sort"
	"sync"

	"github.com/iScript/udiscovery/pkg/uri"

	"github.com/google/btree"
)

const subjectDegree = 32

// Observation is one notification owed to an observer after a change.
type Observation struct {
	Observer uri.URI
	// Subject is the registered URI that matched the change.
	Subject uri.URI
	URI     uri.URI
	Action  string
}

type subject struct {
	uri       uri.URI
	observers map[string]uri.URI
}

// A WatcherHub records which observers watch which subjects and decides who
// must hear about a change. Subjects are ordered by URI so a subtree is one
// contiguous range.
type WatcherHub struct {
	mutex    sync.Mutex
	count    int // number of (subject, observer) entries
	subjects *btree.BTreeG[*subject]
}

func NewWatcherHub() *WatcherHub {
	return &WatcherHub{
		subjects: btree.NewG[*subject](subjectDegree, func(a, b *subject) bool {
			return a.uri.Less(b.uri)
		}),
	}
}

// Watch registers observer for changes at or below subj. It reports whether
// the entry is new; registering twice is a no-op.
func (wh *WatcherHub) Watch(subj, observer uri.URI) bool {
	wh.mutex.Lock()
	defer wh.mutex.Unlock()

	sb, ok := wh.subjects.Get(&subject{uri: subj})
	if !ok {
		sb = &subject{uri: subj, observers: make(map[string]uri.URI)}
		wh.subjects.ReplaceOrInsert(sb)
	}
	if _, exists := sb.observers[observer.Key()]; exists {
		return false
	}
	sb.observers[observer.Key()] = observer
	wh.count++
	return true
}

// Unwatch removes the entry. It reports whether the entry existed.
func (wh *WatcherHub) Unwatch(subj, observer uri.URI) bool {
	wh.mutex.Lock()
	defer wh.mutex.Unlock()

	sb, ok := wh.subjects.Get(&subject{uri: subj})
	if !ok {
		return false
	}
	if _, exists := sb.observers[observer.Key()]; !exists {
		return false
	}
	delete(sb.observers, observer.Key())
	wh.count--
	if len(sb.observers) == 0 {
		wh.subjects.Delete(sb)
	}
	return true
}

// Observers returns the observers of subj in URI order.
func (wh *WatcherHub) Observers(subj uri.URI) []uri.URI {
	wh.mutex.Lock()
	defer wh.mutex.Unlock()

	sb, ok := wh.subjects.Get(&subject{uri: subj})
	if !ok {
		return nil
	}
	return sortedObservers(sb)
}

// Count returns the number of (subject, observer) entries.
func (wh *WatcherHub) Count() int {
	wh.mutex.Lock()
	defer wh.mutex.Unlock()
	return wh.count
}

// Notify returns the observations owed for events, in event order. For each
// event an observer hears once, through the nearest subject at or above the
// changed URI. Removal events also reach observers of subjects inside the
// removed subtree; those entries are dropped.
func (wh *WatcherHub) Notify(events []*Event) []Observation {
	wh.mutex.Lock()
	defer wh.mutex.Unlock()

	var out []Observation
	for _, e := range events {
		seen := make(map[string]struct{})
		emit := func(sb *subject) {
			for _, o := range sortedObservers(sb) {
				if _, dup := seen[o.Key()]; dup {
					continue
				}
				seen[o.Key()] = struct{}{}
				out = append(out, Observation{Observer: o, Subject: sb.uri, URI: e.URI, Action: e.Action})
			}
		}

		if sb, ok := wh.subjects.Get(&subject{uri: e.URI}); ok {
			emit(sb)
		}
		for _, a := range e.URI.Ancestors() {
			if sb, ok := wh.subjects.Get(&subject{uri: a}); ok {
				emit(sb)
			}
		}
		if !e.IsRemoval() {
			continue
		}

		var dropped []*subject
		wh.subjects.AscendGreaterOrEqual(&subject{uri: e.URI}, func(sb *subject) bool {
			if !sb.uri.HasPrefix(e.URI) {
				return false
			}
			if !sb.uri.Equal(e.URI) {
				emit(sb)
			}
			dropped = append(dropped, sb)
			return true
		})
		for _, sb := range dropped {
			wh.subjects.Delete(sb)
			wh.count -= len(sb.observers)
		}
	}
	return out
}

// Prune drops every entry whose subject fails exists, and returns how many
// entries were dropped.
func (wh *WatcherHub) Prune(exists func(uri.URI) bool) int {
	wh.mutex.Lock()
	defer wh.mutex.Unlock()

	var dropped []*subject
	wh.subjects.Ascend(func(sb *subject) bool {
		if !exists(sb.uri) {
			dropped = append(dropped, sb)
		}
		return true
	})
	n := 0
	for _, sb := range dropped {
		wh.subjects.Delete(sb)
		n += len(sb.observers)
	}
	wh.count -= n
	return n
}

func sortedObservers(sb *subject) []uri.URI {
	out := make([]uri.URI, 0, len(sb.observers))
	for _, o := range sb.observers {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
