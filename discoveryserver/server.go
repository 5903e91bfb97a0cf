// Package discoveryserver serves the discovery tree: it validates requests,
// applies mutations, tells observers about them and persists a snapshot
// after each one.
package discoveryserver

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/discoveryserver/api/snap"
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
	"github.com/iScript/udiscovery/discoveryserver/api/v3error"
	"github.com/iScript/udiscovery/discoveryserver/api/v3store"
	"github.com/iScript/udiscovery/lease"
	"github.com/iScript/udiscovery/pkg/idutil"
	"github.com/iScript/udiscovery/pkg/uri"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ServerStats is a point-in-time summary of the server.
type ServerStats struct {
	Name          string    `json:"name"`
	Nodes         int       `json:"nodes"`
	Observers     int       `json:"observers"`
	SnapshotBytes int64     `json:"snapshotBytes"`
	Backend       string    `json:"backend"`
	StartTime     time.Time `json:"startTime"`
}

// DiscoveryServer is the discovery engine. Every operation reports its
// outcome as a *pb.Status; none of them returns an error.
type DiscoveryServer struct {
	// snapshotSize is the size of the last exported snapshot.
	// Accessed atomically, keep 64-bit aligned.
	snapshotSize int64

	Cfg ServerConfig

	lg *zap.Logger

	// mu serializes tree mutations, observer registrations and imports
	// together with the notification decision and snapshot export that
	// follow them.
	mu sync.Mutex
	// deliverMu is taken before mu is released, so notifications reach the
	// notifier in commit order.
	deliverMu sync.Mutex

	store       v3store.Store
	hub         *v3store.WatcherHub
	snapshotter *snap.Snapshotter
	saver       *snap.Saver
	be          backend.Backend
	quota       Quota
	notifier    Notifier
	sweeper     *lease.Sweeper
	reqIDGen    *idutil.Generator
	clock       clockwork.Clock

	startTime time.Time

	stopOnce sync.Once
	// stopping is closed by Shutdown; operations started after it fail with
	// Unavailable.
	stopping chan struct{}
}

// NewServer creates a server over be and seeds the tree from its stored
// snapshot. A corrupt snapshot is logged and the server starts with an
// empty tree. Notifications go to n; nil drops them.
func NewServer(cfg ServerConfig, be backend.Backend, n Notifier) (*DiscoveryServer, error) {
	if be == nil {
		return nil, errors.New("discoveryserver: backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if n == nil {
		n = nopNotifier{}
	}
	lg := cfg.Logger

	s := &DiscoveryServer{
		Cfg:         cfg,
		lg:          lg,
		store:       v3store.New(cfg.Clock),
		hub:         v3store.NewWatcherHub(),
		snapshotter: snap.New(lg),
		be:          be,
		notifier:    n,
		reqIDGen:    idutil.NewGenerator(cfg.ServerID, time.Now()),
		clock:       cfg.Clock,
		startTime:   time.Now(),
		stopping:    make(chan struct{}),
	}

	data, err := be.Load()
	switch {
	case errors.Is(err, backend.ErrNotFound):
		lg.Info("no stored snapshot, starting with an empty tree", zap.String("backend", be.Kind()))
	case err != nil:
		return nil, err
	default:
		if err := s.recover(data); err != nil {
			lg.Warn(
				"discarded stored snapshot, starting with an empty tree",
				zap.String("backend", be.Kind()),
				zap.Int("snapshot-size-bytes", len(data)),
				zap.Error(err),
			)
		} else {
			atomic.StoreInt64(&s.snapshotSize, int64(len(data)))
			lg.Info(
				"recovered tree from stored snapshot",
				zap.String("backend", be.Kind()),
				zap.Int("nodes", s.store.Len()),
				zap.Int("snapshot-size-bytes", len(data)),
			)
		}
	}
	nodesTotal.Set(float64(s.store.Len()))
	observersTotal.Set(0)

	s.saver = snap.NewSaver(lg, be)
	s.quota = NewBackendQuota(s, "v3-applier")
	s.sweeper = lease.NewSweeper(lg, &expirer{s}, lease.SweeperConfig{
		Interval:   cfg.SweepInterval,
		ExpireRate: cfg.ExpireRate,
		Clock:      cfg.Clock,
	})
	return s, nil
}

// Start begins expiring nodes. It returns immediately.
func (s *DiscoveryServer) Start() {
	s.lg.Info(
		"starting discovery server",
		zap.String("name", s.Cfg.Name),
		zap.String("backend", s.be.Kind()),
		zap.Int("nodes", s.store.Len()),
	)
	s.sweeper.Start()
}

// Shutdown stops the sweeper, writes any pending snapshot and closes the
// backend. It is safe to call more than once; later calls return nil.
func (s *DiscoveryServer) Shutdown() (err error) {
	s.stopOnce.Do(func() {
		close(s.stopping)
		s.sweeper.Stop()

		// wait for the mutation in flight, if any
		s.mu.Lock()
		s.mu.Unlock()

		s.saver.Stop()
		err = multierr.Append(err, s.be.Close())
		if c, ok := s.notifier.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
		s.lg.Info("stopped discovery server", zap.String("name", s.Cfg.Name), zap.Error(err))
	})
	return err
}

// StopNotify returns a channel that is closed when the server is shut down.
func (s *DiscoveryServer) StopNotify() <-chan struct{} { return s.stopping }

func (s *DiscoveryServer) isStopped() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

func (s *DiscoveryServer) getLogger() *zap.Logger { return s.lg }

func (s *DiscoveryServer) Logger() *zap.Logger { return s.lg }

// SnapshotSize returns the size in bytes of the last exported snapshot.
func (s *DiscoveryServer) SnapshotSize() int64 { return atomic.LoadInt64(&s.snapshotSize) }

// Sync blocks until every snapshot exported so far has been written.
func (s *DiscoveryServer) Sync() { s.saver.Sync() }

// Sweeper exposes the expiry loop, mainly so tests can wait for a sweep.
func (s *DiscoveryServer) Sweeper() *lease.Sweeper { return s.sweeper }

func (s *DiscoveryServer) Stats() ServerStats {
	return ServerStats{
		Name:          s.Cfg.Name,
		Nodes:         s.store.Len(),
		Observers:     s.hub.Count(),
		SnapshotBytes: s.SnapshotSize(),
		Backend:       s.be.Kind(),
		StartTime:     s.startTime,
	}
}

// Validate checks the structural invariants of the tree.
func (s *DiscoveryServer) Validate() error { return s.store.Validate() }

// Export returns a sealed snapshot of the current tree.
func (s *DiscoveryServer) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotter.Export(s.store)
}

// Import replaces the tree with the one sealed in snapshot and persists it.
// A snapshot that fails verification leaves the tree untouched and yields
// DataLoss. Registrations whose subject is gone are dropped.
func (s *DiscoveryServer) Import(snapshot []byte) *pb.Status {
	if s.isStopped() {
		return toStatus(errStopped)
	}
	data, err := s.snapshotter.Import(snapshot)
	if err != nil {
		return toStatus(err)
	}

	s.mu.Lock()
	if err := s.recoverLocked(data); err != nil {
		s.mu.Unlock()
		return toStatus(err)
	}
	s.persistLocked()
	s.mu.Unlock()
	nodesTotal.Set(float64(s.store.Len()))
	return okStatus()
}

func (s *DiscoveryServer) recover(snapshot []byte) error {
	data, err := s.snapshotter.Import(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recoverLocked(data)
}

func (s *DiscoveryServer) recoverLocked(data []byte) error {
	if err := s.store.Recovery(data); err != nil {
		return err
	}
	if n := s.hub.Prune(s.store.Exists); n > 0 {
		s.lg.Info("dropped registrations of removed subjects", zap.Int("entries", n))
	}
	observersTotal.Set(float64(s.hub.Count()))
	return nil
}

// applyMutation runs fn under mu. When fn changed the tree, the observers
// to tell are decided and a snapshot is exported before mu is released;
// notifications are delivered after, in commit order. req is charged against the quota
// first; nil is never rejected.
func (s *DiscoveryServer) applyMutation(op string, req interface{}, fn func() ([]*v3store.Event, error)) *pb.Status {
	start := time.Now()
	reqID := s.reqIDGen.Next()

	s.mu.Lock()
	if s.isStopped() {
		s.mu.Unlock()
		return s.rejected(op, reqID, errStopped)
	}
	if req != nil && !s.quota.Available(req) {
		s.mu.Unlock()
		return s.rejected(op, reqID, v3error.Errorf(v3error.EcodeQuotaExceeded,
			"request costs %d bytes, %d bytes remaining", s.quota.Cost(req), s.quota.Remaining()))
	}
	events, err := fn()
	if err != nil {
		s.mu.Unlock()
		return s.rejected(op, reqID, err)
	}
	var obs []v3store.Observation
	if len(events) > 0 {
		obs = s.hub.Notify(events)
		s.persistLocked()
		observersTotal.Set(float64(s.hub.Count()))
	}
	if len(obs) > 0 {
		s.deliverMu.Lock()
		s.mu.Unlock()
		s.deliver(obs)
		s.deliverMu.Unlock()
	} else {
		s.mu.Unlock()
	}

	mutationsApplied.WithLabelValues(op).Inc()
	nodesTotal.Set(float64(s.store.Len()))
	if ce := s.lg.Check(zap.DebugLevel, "applied mutation"); ce != nil {
		ce.Write(
			zap.String("operation", op),
			zap.Uint64("request-id", reqID),
			zap.Int("events", len(events)),
			zap.Int("notifications", len(obs)),
			zap.Duration("took", time.Since(start)),
		)
	}
	return okStatus()
}

func (s *DiscoveryServer) rejected(op string, reqID uint64, err error) *pb.Status {
	st := toStatus(err)
	mutationsFailed.WithLabelValues(op, st.Code.String()).Inc()
	s.lg.Debug(
		"rejected mutation",
		zap.String("operation", op),
		zap.Uint64("request-id", reqID),
		zap.String("code", st.Code.String()),
		zap.Error(err),
	)
	return st
}

// persistLocked exports the tree and hands it to the saver. s.mu must be
// held so the export reflects exactly the mutation just applied.
func (s *DiscoveryServer) persistLocked() {
	data, err := s.snapshotter.Export(s.store)
	if err != nil {
		s.lg.Warn("failed to export snapshot", zap.Error(err))
		return
	}
	atomic.StoreInt64(&s.snapshotSize, int64(len(data)))
	s.saver.Enqueue(data)
}

func (s *DiscoveryServer) deliver(obs []v3store.Observation) {
	if len(obs) == 0 {
		return
	}
	now := s.clock.Now().UTC()
	for _, o := range obs {
		n := &pb.Notification{
			Id:       uuid.NewString(),
			Observer: o.Observer.String(),
			Uri:      o.URI.String(),
			Parent:   o.Subject.String(),
			Action:   o.Action,
			Time:     now,
		}
		if err := s.notifier.Notify(n); err != nil {
			notificationsFailed.Inc()
			s.lg.Warn(
				"failed to deliver notification",
				zap.String("observer", n.Observer),
				zap.String("uri", n.Uri),
				zap.String("action", n.Action),
				zap.Error(err),
			)
			continue
		}
		notificationsSent.Inc()
	}
}

// expirer lets the sweeper expire nodes through the mutation path.
type expirer struct {
	s *DiscoveryServer
}

func (e *expirer) Expired(now time.Time) []lease.Item {
	if e.s.isStopped() {
		return nil
	}
	return e.s.store.Expired(now)
}

func (e *expirer) Expire(item lease.Item) bool {
	removed := false
	st := e.s.applyMutation("expire", nil, func() ([]*v3store.Event, error) {
		ev := e.s.store.Expire(item)
		if ev == nil {
			return nil, nil
		}
		removed = true
		return []*v3store.Event{ev}, nil
	})
	if !removed || !st.IsOK() {
		return false
	}
	nodesExpired.Inc()
	return true
}

func parseURI(text, field string) (uri.URI, error) {
	if text == "" {
		return uri.URI{}, v3error.Errorf(v3error.EcodeInvalidArgument, "%s is required", field)
	}
	u, err := uri.Parse(text)
	if err != nil {
		return uri.URI{}, v3error.Errorf(v3error.EcodeInvalidArgument, "%s %q: %v", field, text, err)
	}
	return u, nil
}
