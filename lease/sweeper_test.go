package lease

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeExpirer struct {
	mu      sync.Mutex
	q       *ExpiryQueue
	expired []string
}

func newFakeExpirer() *fakeExpirer { return &fakeExpirer{q: NewExpiryQueue()} }

func (f *fakeExpirer) add(key string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.q.RegisterOrUpdate(key, t)
}

func (f *fakeExpirer) Expired(now time.Time) []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.q.Due(now)
}

func (f *fakeExpirer) Expire(it Item) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.q.Unregister(it.Key)
	f.expired = append(f.expired, it.Key)
	return true
}

func (f *fakeExpirer) expiredKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.expired...)
}

func waitTick(t *testing.T, s *Sweeper, n uint64) {
	t.Helper()
	select {
	case <-s.WaitTick(n):
	case <-time.After(5 * time.Second):
		t.Fatalf("sweep %d did not complete", n)
	}
}

func TestSweeperExpiresDueKeys(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fe := newFakeExpirer()
	fe.add("//a", fc.Now().Add(time.Second))
	fe.add("//b", fc.Now().Add(3*time.Second))

	s := NewSweeper(zaptest.NewLogger(t), fe, SweeperConfig{Interval: time.Second, Clock: fc})
	s.Start()
	defer s.Stop()

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	waitTick(t, s, 1)
	assert.Equal(t, []string{"//a"}, fe.expiredKeys())

	fc.Advance(time.Second)
	waitTick(t, s, 2)
	assert.Equal(t, []string{"//a"}, fe.expiredKeys())

	fc.Advance(time.Second)
	waitTick(t, s, 3)
	assert.Equal(t, []string{"//a", "//b"}, fe.expiredKeys())
	assert.Equal(t, uint64(3), s.Ticks())
}

func TestSweeperRateLimit(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fe := newFakeExpirer()
	for _, k := range []string{"//k/1", "//k/2", "//k/3", "//k/4", "//k/5"} {
		fe.add(k, fc.Now())
	}

	s := NewSweeper(zaptest.NewLogger(t), fe, SweeperConfig{Interval: time.Second, ExpireRate: 2, Clock: fc})
	s.Start()
	defer s.Stop()

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	waitTick(t, s, 1)
	require.Len(t, fe.expiredKeys(), 2)

	fc.Advance(time.Second)
	waitTick(t, s, 2)
	require.Len(t, fe.expiredKeys(), 4)

	fc.Advance(time.Second)
	waitTick(t, s, 3)
	assert.Equal(t, []string{"//k/1", "//k/2", "//k/3", "//k/4", "//k/5"}, fe.expiredKeys())
}

func stopWithin(t *testing.T, s *Sweeper, d time.Duration) {
	t.Helper()
	donec := make(chan struct{})
	go func() {
		s.Stop()
		close(donec)
	}()
	select {
	case <-donec:
	case <-time.After(d):
		t.Fatalf("Stop did not return within %v", d)
	}
}

func TestSweeperStopIdempotent(t *testing.T) {
	s := NewSweeper(nil, newFakeExpirer(), SweeperConfig{})
	stopWithin(t, s, 2*time.Second)
	stopWithin(t, s, 2*time.Second)

	s.Start()
	stopWithin(t, s, 2*time.Second)
	assert.Zero(t, s.Ticks(), "Start after Stop does not launch the loop")

	s = NewSweeper(nil, newFakeExpirer(), SweeperConfig{Interval: time.Millisecond})
	s.Start()
	stopWithin(t, s, 2*time.Second)
	stopWithin(t, s, 2*time.Second)
}
