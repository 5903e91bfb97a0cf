package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/iScript/udiscovery/pkg/fileutil"

	humanize "github.com/dustin/go-humanize"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	// initialMmapSize is the initial size of the mmapped region. Setting this larger than
	// the potential max db size can prevent writer from blocking reader.
	// This only works for linux.
	initialMmapSize = uint64(64 * 1024 * 1024)

	defaultOpenTimeout = 10 * time.Second

	snapshotBucketName = []byte("lds")
	snapshotKey        = []byte("db")
)

type boltBackend struct {
	// size is the number of bytes of the stored snapshot
	size int64
	// commits counts number of commits since start
	commits int64

	db *bolt.DB
	lg *zap.Logger
}

type BoltConfig struct {
	// Path is the file path to the backend file.
	Path string
	// BackendFreelistType is the backend boltdb's freelist type.
	BackendFreelistType bolt.FreelistType
	// MmapSize is the number of bytes to mmap for the backend.
	MmapSize uint64
	// Logger logs backend-side operations.
	Logger *zap.Logger
}

func DefaultBoltConfig() BoltConfig {
	return BoltConfig{
		MmapSize: initialMmapSize,
	}
}

// NewBolt opens, creating if needed, a bolt database holding the snapshot
// in bucket "lds" under key "db".
func NewBolt(bcfg BoltConfig) (Backend, error) {
	lg := bcfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	if err := fileutil.TouchDirAll(filepath.Dir(bcfg.Path)); err != nil {
		return nil, fmt.Errorf("cannot access data directory: %w", err)
	}

	bopts := &bolt.Options{}
	if boltOpenOptions != nil {
		*bopts = *boltOpenOptions
	}
	bopts.InitialMmapSize = bcfg.mmapSize()
	bopts.FreelistType = bcfg.BackendFreelistType
	bopts.Timeout = defaultOpenTimeout

	db, err := bolt.Open(bcfg.Path, fileutil.PrivateFileMode, bopts)
	if err != nil {
		lg.Warn("failed to open database", zap.String("path", bcfg.Path), zap.Error(err))
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	b := &boltBackend{db: db, lg: lg}
	if data, err := b.Load(); err == nil {
		atomic.StoreInt64(&b.size, int64(len(data)))
	}
	lg.Info(
		"opened bolt backend",
		zap.String("path", bcfg.Path),
		zap.String("snapshot-size", humanize.Bytes(uint64(b.Size()))),
		zap.String("db-file-size", humanize.Bytes(uint64(b.dbSize()))),
	)
	return b, nil
}

func (b *boltBackend) Save(data []byte) error {
	start := time.Now()
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotBucketName)
		if bucket == nil {
			return fmt.Errorf("bucket %q missing", snapshotBucketName)
		}
		return bucket.Put(snapshotKey, data)
	})
	if err != nil {
		return err
	}
	atomic.StoreInt64(&b.size, int64(len(data)))
	atomic.AddInt64(&b.commits, 1)
	b.lg.Debug(
		"committed snapshot",
		zap.Int("size", len(data)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (b *boltBackend) Load() ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotBucketName)
		if bucket == nil {
			return ErrNotFound
		}
		v := bucket.Get(snapshotKey)
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

func (b *boltBackend) Size() int64 {
	return atomic.LoadInt64(&b.size)
}

// Commits returns the number of snapshots written since open.
func (b *boltBackend) Commits() int64 {
	return atomic.LoadInt64(&b.commits)
}

func (b *boltBackend) Kind() string { return KindBolt }

func (b *boltBackend) Close() error {
	return b.db.Close()
}

// dbSize returns the on-disk size of the database file.
func (b *boltBackend) dbSize() int64 {
	fi, err := os.Stat(b.db.Path())
	if err != nil {
		return 0
	}
	return fi.Size()
}
