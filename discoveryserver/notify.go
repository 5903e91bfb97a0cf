package discoveryserver

import (
	"errors"
	"sync"

	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/pkg/uri"
)

// DefaultNotificationBuffer is the queue length of one watch stream.
const DefaultNotificationBuffer = 64

var (
	ErrObserverNotConnected = errors.New("discoveryserver: observer not connected")
	ErrObserverSlow         = errors.New("discoveryserver: observer queue full")
	ErrHubClosed            = errors.New("discoveryserver: notification hub closed")
)

// Notifier delivers a notification to its observer. Notify must not block
// on the observer.
type Notifier interface {
	Notify(n *pb.Notification) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(*pb.Notification) error { return nil }

type subscription struct {
	c chan *pb.Notification
}

// NotificationHub fans notifications out to observers connected through
// Subscribe. An observer may hold several subscriptions; each receives a
// copy. A notification for an observer without a subscription, or whose
// queues are all full, is reported as an error and dropped.
type NotificationHub struct {
	mu     sync.Mutex
	size   int
	closed bool
	subs   map[string]map[*subscription]struct{}
}

func NewNotificationHub(bufferSize int) *NotificationHub {
	if bufferSize <= 0 {
		bufferSize = DefaultNotificationBuffer
	}
	return &NotificationHub{
		size: bufferSize,
		subs: make(map[string]map[*subscription]struct{}),
	}
}

// Subscribe opens a queue for observer. The channel is closed by cancel or
// by Close.
func (h *NotificationHub) Subscribe(observer uri.URI) (<-chan *pb.Notification, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, ErrHubClosed
	}

	key := observer.String()
	sub := &subscription{c: make(chan *pb.Notification, h.size)}
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscription]struct{})
	}
	h.subs[key][sub] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[key][sub]; !ok {
				return
			}
			delete(h.subs[key], sub)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			close(sub.c)
		})
	}
	return sub.c, cancel, nil
}

// Subscribers returns the number of open subscriptions of observer.
func (h *NotificationHub) Subscribers(observer uri.URI) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[observer.String()])
}

func (h *NotificationHub) Notify(n *pb.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[n.Observer]
	if len(subs) == 0 {
		return ErrObserverNotConnected
	}
	delivered := false
	for sub := range subs {
		select {
		case sub.c <- n:
			delivered = true
		default:
		}
	}
	if !delivered {
		return ErrObserverSlow
	}
	return nil
}

// Close ends every subscription. Later subscriptions fail with ErrHubClosed.
func (h *NotificationHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for key, subs := range h.subs {
		for sub := range subs {
			close(sub.c)
		}
		delete(h.subs, key)
	}
	return nil
}
