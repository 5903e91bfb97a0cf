package lease

import (
	"container/heap"
	"sort"
	"time"
)

// Item is a key with the instant it expires at.
type Item struct {
	Key  string
	Time time.Time
}

// itemWithTime is a heap entry. time is unix nanos.
type itemWithTime struct {
	key   string
	time  int64
	index int
}

type itemQueue []*itemWithTime

func (pq itemQueue) Len() int { return len(pq) }

func (pq itemQueue) Less(i, j int) bool {
	return pq[i].time < pq[j].time
}

func (pq itemQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *itemQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*itemWithTime)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *itemQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	item.index = -1 // for safety
	old[n-1] = nil
	*pq = old[0 : n-1]
	return item
}

// ExpiryQueue orders keys by expiry time. It keeps one entry per key;
// RegisterOrUpdate moves an existing key. Not safe for concurrent use.
type ExpiryQueue struct {
	m     map[string]*itemWithTime
	queue itemQueue
}

func NewExpiryQueue() *ExpiryQueue {
	return &ExpiryQueue{
		m:     make(map[string]*itemWithTime),
		queue: make(itemQueue, 0),
	}
}

func (q *ExpiryQueue) RegisterOrUpdate(key string, t time.Time) {
	if old, ok := q.m[key]; ok {
		old.time = t.UnixNano()
		heap.Fix(&q.queue, old.index)
		return
	}
	item := &itemWithTime{key: key, time: t.UnixNano()}
	heap.Push(&q.queue, item)
	q.m[key] = item
}

func (q *ExpiryQueue) Unregister(key string) {
	item, ok := q.m[key]
	if !ok {
		return
	}
	heap.Remove(&q.queue, item.index)
	delete(q.m, key)
}

// Peek returns the earliest item, or false when the queue is empty.
func (q *ExpiryQueue) Peek() (Item, bool) {
	if q.Len() == 0 {
		return Item{}, false
	}
	return q.queue[0].item(), true
}

// Due returns every item whose time is not after now, earliest first.
// The queue is not modified.
func (q *ExpiryQueue) Due(now time.Time) []Item {
	limit := now.UnixNano()
	var due []*itemWithTime
	// children of an entry later than limit are later still, so the walk prunes there.
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if i >= len(q.queue) || q.queue[i].time > limit {
			continue
		}
		due = append(due, q.queue[i])
		stack = append(stack, 2*i+1, 2*i+2)
	}
	sortItems(due)
	out := make([]Item, len(due))
	for i, it := range due {
		out[i] = it.item()
	}
	return out
}

func (q *ExpiryQueue) Len() int {
	return len(q.m)
}

func (it *itemWithTime) item() Item {
	return Item{Key: it.key, Time: time.Unix(0, it.time).UTC()}
}

func sortItems(items []*itemWithTime) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].time != items[j].time {
			return items[i].time < items[j].time
		}
		return items[i].key < items[j].key
	})
}
