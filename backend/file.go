package backend

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/iScript/udiscovery/pkg/fileutil"
	"github.com/iScript/udiscovery/pkg/ioutil"

	"go.uber.org/zap"
)

// fileBackend keeps the snapshot in one file, replaced atomically.
type fileBackend struct {
	size int64

	mu   sync.Mutex
	path string
	lg   *zap.Logger
}

func NewFile(lg *zap.Logger, path string) (Backend, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	dir := filepath.Dir(path)
	if err := fileutil.TouchDirAll(dir); err != nil {
		return nil, err
	}
	// a crash during Save can leave a temp file behind
	if names, err := fileutil.ReadDir(dir, fileutil.WithExt(ioutil.TempExt)); err == nil {
		for _, name := range names {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				lg.Warn("failed to remove stale temp file", zap.String("path", name), zap.Error(err))
			}
		}
	}
	b := &fileBackend{path: path, lg: lg}
	if fi, err := os.Stat(path); err == nil {
		atomic.StoreInt64(&b.size, fi.Size())
	}
	lg.Info("opened file backend", zap.String("path", path))
	return b, nil
}

func (b *fileBackend) Save(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ioutil.WriteFileAtomic(b.path, data, fileutil.PrivateFileMode); err != nil {
		return err
	}
	atomic.StoreInt64(&b.size, int64(len(data)))
	return nil
}

func (b *fileBackend) Load() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *fileBackend) Size() int64 { return atomic.LoadInt64(&b.size) }

func (b *fileBackend) Kind() string { return KindFile }

func (b *fileBackend) Close() error { return nil }
