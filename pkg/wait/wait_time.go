// Package wait lets goroutines block until a monotonically increasing
// counter, such as a sweep tick or a snapshot write sequence, reaches a
// given value.
package wait

import "sync"

// WaitTime waits on a logical counter.
type WaitTime interface {
	// Wait returns a channel closed once Trigger has been called with a
	// value of at least n.
	Wait(n uint64) <-chan struct{}
	// Trigger advances the counter to n and releases every waiter at or
	// below it. Values below the current counter are ignored.
	Trigger(n uint64)
}

var closedc = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

type timeList struct {
	mu      sync.Mutex
	reached uint64
	waiters map[uint64]chan struct{}
}

func NewTimeList() WaitTime {
	return &timeList{waiters: make(map[uint64]chan struct{})}
}

func (tl *timeList) Wait(n uint64) <-chan struct{} {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if n <= tl.reached {
		return closedc
	}
	c, ok := tl.waiters[n]
	if !ok {
		c = make(chan struct{})
		tl.waiters[n] = c
	}
	return c
}

func (tl *timeList) Trigger(n uint64) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if n < tl.reached {
		return
	}
	tl.reached = n
	for at, c := range tl.waiters {
		if at > n {
			continue
		}
		close(c)
		delete(tl.waiters, at)
	}
}
