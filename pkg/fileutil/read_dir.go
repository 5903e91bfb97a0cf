package fileutil

import (
	"os"
	"path/filepath"
)

// ReadDirOp holds the filters of a ReadDir call.
type ReadDirOp struct {
	ext string
}

// ReadDirOption configures ReadDir.
type ReadDirOption func(*ReadDirOp)

// WithExt keeps only names ending in ext, e.g. WithExt(".tmp") for
// leftover snapshot temp files.
func WithExt(ext string) ReadDirOption {
	return func(op *ReadDirOp) { op.ext = ext }
}

// ReadDir returns the sorted names of the entries in dir.
func ReadDir(dir string, opts ...ReadDirOption) ([]string, error) {
	var op ReadDirOp
	for _, opt := range opts {
		opt(&op)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if op.ext != "" && filepath.Ext(e.Name()) != op.ext {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
