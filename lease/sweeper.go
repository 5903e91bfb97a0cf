// Package lease drives time-to-live expiry of discovery tree nodes.
package lease

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/iScript/udiscovery/pkg/contention"
	"github.com/iScript/udiscovery/pkg/wait"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultSweepInterval is how often expired nodes are collected.
	DefaultSweepInterval = 500 * time.Millisecond

	// DefaultExpireRate is the maximum number of nodes expired per second.
	DefaultExpireRate = 1000
)

// Expirer is the collaborator whose keys the sweeper expires.
type Expirer interface {
	// Expired returns the keys due at now.
	Expired(now time.Time) []Item
	// Expire removes item if its expiry is still item.Time. It reports
	// whether the key was removed.
	Expire(item Item) bool
}

type SweeperConfig struct {
	Interval   time.Duration
	ExpireRate int
	Clock      clockwork.Clock
}

// Sweeper periodically expires due keys on a single goroutine, so sweeps
// never overlap.
type Sweeper struct {
	lg      *zap.Logger
	expirer Expirer
	clock   clockwork.Clock

	interval time.Duration
	limiter  *rate.Limiter
	td       *contention.TimeoutDetector

	// ticks counts completed sweeps; wt is triggered with it after each sweep.
	ticks uint64
	wt    wait.WaitTime

	startOnce sync.Once
	stopOnce  sync.Once
	// stopC is a channel whose closure indicates that the sweeper should be stopped.
	stopC chan struct{}
	// doneC is a channel whose closure indicates that the sweeper is stopped.
	doneC chan struct{}
}

func NewSweeper(lg *zap.Logger, e Expirer, cfg SweeperConfig) *Sweeper {
	if lg == nil {
		lg = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	expireRate := cfg.ExpireRate
	if expireRate <= 0 {
		expireRate = DefaultExpireRate
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweeper{
		lg:       lg,
		expirer:  e,
		clock:    clock,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Limit(expireRate), expireRate),
		// a sweep that starts more than one interval late means the previous one overran
		td:    contention.NewTimeoutDetector(2 * interval),
		wt:    wait.NewTimeList(),
		stopC: make(chan struct{}),
		doneC: make(chan struct{}),
	}
}

// Start launches the sweep loop. Calling Start more than once has no effect.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() { go s.runLoop() })
}

func (s *Sweeper) runLoop() {
	defer close(s.doneC)

	t := s.clock.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-t.Chan():
			s.sweep()
		case <-s.stopC:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	now := s.clock.Now()
	if ok, exceed := s.td.Observe(0, now); !ok {
		s.lg.Warn(
			"sweep started late; previous sweep took too long",
			zap.Duration("expected-interval", s.interval),
			zap.Duration("exceeded", exceed),
		)
	}

	due := s.expirer.Expired(now)
	expired, deferred := 0, 0
	for i, it := range due {
		if !s.limiter.AllowN(now, 1) {
			deferred = len(due) - i
			break
		}
		if s.expirer.Expire(it) {
			expired++
		}
	}
	if expired > 0 || deferred > 0 {
		s.lg.Debug(
			"swept expired nodes",
			zap.Int("expired", expired),
			zap.Int("deferred", deferred),
			zap.Duration("took", s.clock.Since(now)),
		)
	}
	s.wt.Trigger(atomic.AddUint64(&s.ticks, 1))
}

// Ticks returns the number of completed sweeps.
func (s *Sweeper) Ticks() uint64 { return atomic.LoadUint64(&s.ticks) }

// WaitTick returns a channel closed once sweep n has completed.
func (s *Sweeper) WaitTick(n uint64) <-chan struct{} { return s.wt.Wait(n) }

// Stop stops the sweep loop and waits for an in-flight sweep to finish.
// It is safe to call Stop more than once, and without Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopC) })
	// a sweeper that never ran has no loop to close doneC
	s.startOnce.Do(func() { close(s.doneC) })
	<-s.doneC
}
