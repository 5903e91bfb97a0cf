package ioutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/iScript/udiscovery/pkg/fileutil"
)

// TempExt is the extension of the temporary file WriteFileAtomic writes first.
const TempExt = ".tmp"

// WriteAndSyncFile behaves just like ioutil.WriteFile in the standard library,
// but calls Sync before closing the file. WriteAndSyncFile guarantees the data
// is synced if there is no error returned.
func WriteAndSyncFile(filename string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	n, err := f.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = fileutil.Fsync(f)
	}
	if err1 := f.Close(); err == nil {
		err = err1
	}
	return err
}

// WriteFileAtomic writes data to a temporary file next to filename and renames
// it into place, so readers see either the old or the new content.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp := filename + TempExt
	if err := WriteAndSyncFile(tmp, data, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return err
	}
	return fileutil.SyncDir(filepath.Dir(filename))
}
