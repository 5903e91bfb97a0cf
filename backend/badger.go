package backend

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

type BadgerConfig struct {
	// Path is the directory for badger files. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in memory. Useful for testing.
	InMemory bool
	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
	Logger     *zap.Logger
}

type badgerBackend struct {
	size int64

	db *badger.DB
	lg *zap.Logger
}

// badgerLogger adapts a zap logger to badger's Logger interface.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

func NewBadger(cfg BadgerConfig) (Backend, error) {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("backend: badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0700); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{lg.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	b := &badgerBackend{db: db, lg: lg}
	if data, err := b.Load(); err == nil {
		atomic.StoreInt64(&b.size, int64(len(data)))
	}
	lg.Info("opened badger backend", zap.String("path", cfg.Path), zap.Bool("in-memory", cfg.InMemory))
	return b, nil
}

func (b *badgerBackend) Save(data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, data)
	})
	if err != nil {
		return err
	}
	atomic.StoreInt64(&b.size, int64(len(data)))
	return nil
}

func (b *badgerBackend) Load() ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

func (b *badgerBackend) Size() int64 { return atomic.LoadInt64(&b.size) }

func (b *badgerBackend) Kind() string { return KindBadger }

func (b *badgerBackend) Close() error { return b.db.Close() }
