package snap

import (
	"sync"
	"time"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/pkg/wait"

	humanize "github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Saver writes snapshots to a backend on its own goroutine. It holds at most
// one pending snapshot; a newer one replaces an older one not yet written.
// Write failures are logged and counted, never returned.
type Saver struct {
	lg *zap.Logger
	be backend.Backend

	mu       sync.Mutex
	pending  []byte
	enqueued uint64 // sequence of the latest enqueued snapshot
	stopped  bool

	notifyc chan struct{}
	// wt is triggered with the sequence of each written (or dropped) snapshot.
	wt wait.WaitTime

	stopOnce sync.Once
	stopc    chan struct{}
	donec    chan struct{}
}

func NewSaver(lg *zap.Logger, be backend.Backend) *Saver {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Saver{
		lg:      lg,
		be:      be,
		notifyc: make(chan struct{}, 1),
		wt:      wait.NewTimeList(),
		stopc:   make(chan struct{}),
		donec:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Enqueue hands a snapshot to the writer. It never blocks on storage.
// The saver takes ownership of data.
func (s *Saver) Enqueue(data []byte) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.lg.Warn("dropped snapshot enqueued after stop", zap.Int("size", len(data)))
		return
	}
	s.pending = data
	s.enqueued++
	s.mu.Unlock()

	select {
	case s.notifyc <- struct{}{}:
	default:
	}
}

// Sync blocks until every snapshot enqueued before the call has been written
// or replaced by a later one that has.
func (s *Saver) Sync() {
	s.mu.Lock()
	seq := s.enqueued
	s.mu.Unlock()
	select {
	case <-s.wt.Wait(seq):
	case <-s.donec:
	}
}

// Stop writes any pending snapshot and stops the writer. Safe to call twice.
func (s *Saver) Stop() {
	s.stopOnce.Do(func() { close(s.stopc) })
	<-s.donec
}

func (s *Saver) run() {
	defer close(s.donec)
	for {
		select {
		case <-s.notifyc:
			s.flush()
		case <-s.stopc:
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			s.flush()
			return
		}
	}
}

func (s *Saver) flush() {
	s.mu.Lock()
	data, seq := s.pending, s.enqueued
	s.pending = nil
	s.mu.Unlock()
	if data == nil {
		return
	}
	defer s.wt.Trigger(seq)

	start := time.Now()
	if err := s.be.Save(data); err != nil {
		snapSaveFailures.Inc()
		s.lg.Warn(
			"failed to persist snapshot",
			zap.String("backend", s.be.Kind()),
			zap.Int("size", len(data)),
			zap.Error(err),
		)
		return
	}
	took := time.Since(start)
	snapSaveDurations.Observe(took.Seconds())
	backendSizeBytes.Set(float64(s.be.Size()))
	s.lg.Debug(
		"persisted snapshot",
		zap.String("backend", s.be.Kind()),
		zap.String("size", humanize.Bytes(uint64(len(data)))),
		zap.Duration("took", took),
	)
}
