// Package backend stores the latest tree snapshot. Each backend keeps a
// single value: Save replaces it, Load returns it.
package backend

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("backend: no snapshot")

type Backend interface {
	// Save durably replaces the stored snapshot.
	Save(data []byte) error
	// Load returns the stored snapshot, or ErrNotFound.
	Load() ([]byte, error)
	// Size returns the size in bytes of the stored snapshot.
	Size() int64
	// Kind names the backend type, for logs and metrics.
	Kind() string
	Close() error
}

const (
	KindBolt   = "bolt"
	KindBadger = "badger"
	KindFile   = "file"
	KindMemory = "memory"
)

type Config struct {
	// Kind selects the implementation. Empty means bolt.
	Kind string
	// Dir is the data directory. Each backend keeps its files under it.
	Dir string
	// SnapshotFile overrides the file name used by the file backend.
	SnapshotFile string
	// MmapSize is the number of bytes to mmap for the bolt backend.
	MmapSize uint64
	// SyncWrites makes badger fsync every write.
	SyncWrites bool
	// Logger logs backend-side operations.
	Logger *zap.Logger
}

// Open opens the backend selected by cfg.Kind.
func Open(cfg Config) (Backend, error) {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	switch cfg.Kind {
	case "", KindBolt:
		bcfg := DefaultBoltConfig()
		bcfg.Path = filepath.Join(cfg.Dir, "db")
		if cfg.MmapSize > 0 {
			bcfg.MmapSize = cfg.MmapSize
		}
		bcfg.Logger = lg
		return NewBolt(bcfg)
	case KindBadger:
		return NewBadger(BadgerConfig{
			Path:       filepath.Join(cfg.Dir, "badger"),
			SyncWrites: cfg.SyncWrites,
			Logger:     lg,
		})
	case KindFile:
		name := cfg.SnapshotFile
		if name == "" {
			name = "udiscovery.snap"
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(cfg.Dir, name)
		}
		return NewFile(lg, name)
	case KindMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("backend: unknown kind %q", cfg.Kind)
}
