package discoveryserver

import (
	"fmt"
	"time"

	"github.com/iScript/udiscovery/backend"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultMaxRequestBytes is the request size limit when none is configured.
const DefaultMaxRequestBytes = 1.5 * 1024 * 1024

// ServerConfig holds the configuration of the discovery server.
type ServerConfig struct {
	Name    string
	DataDir string

	// BackendKind selects where snapshots are written: bolt, badger or file.
	BackendKind string
	// SnapshotFile is the snapshot path of the file backend, relative to DataDir.
	SnapshotFile string
	// BackendMmapSize is the initial mmap size of the bolt backend.
	BackendMmapSize uint64
	// BackendSyncWrites makes the badger backend fsync every write.
	BackendSyncWrites bool

	// SweepInterval is the wait duration between expiry sweeps.
	SweepInterval time.Duration
	// ExpireRate bounds how many nodes expire per second.
	ExpireRate int

	// QuotaSnapshotBytes bounds the size of an exported snapshot.
	// Zero or negative disables the quota.
	QuotaSnapshotBytes int64

	// MaxRequestBytes is the maximum request size accepted from clients.
	MaxRequestBytes uint

	// NotificationBuffer is the per-observer queue length of watch streams.
	NotificationBuffer int

	// ServerID seeds request ids; servers sharing a log should differ.
	ServerID uint16

	// Logger logs server-side operations.
	Logger *zap.Logger
	// Clock drives expiry. Nil uses the real clock.
	Clock clockwork.Clock

	Debug bool
}

// VerifyBootstrap sanity-checks the server configuration.
func (c *ServerConfig) VerifyBootstrap() error {
	if c.Name == "" {
		return fmt.Errorf("server name is required")
	}
	switch c.BackendKind {
	case "", backend.KindBolt, backend.KindBadger, backend.KindFile:
		if c.DataDir == "" {
			return fmt.Errorf("data dir is required for the %q backend", c.backendKind())
		}
	case backend.KindMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.BackendKind)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("sweep interval %v must not be negative", c.SweepInterval)
	}
	if c.ExpireRate < 0 {
		return fmt.Errorf("expire rate %d must not be negative", c.ExpireRate)
	}
	return nil
}

func (c *ServerConfig) backendKind() string {
	if c.BackendKind == "" {
		return backend.KindBolt
	}
	return c.BackendKind
}

func (c *ServerConfig) backendConfig() backend.Config {
	return backend.Config{
		Kind:         c.backendKind(),
		Dir:          c.DataDir,
		SnapshotFile: c.SnapshotFile,
		MmapSize:     c.BackendMmapSize,
		SyncWrites:   c.BackendSyncWrites,
		Logger:       c.Logger,
	}
}
