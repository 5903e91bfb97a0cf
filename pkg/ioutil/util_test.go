package ioutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndSyncFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f")
	require.NoError(t, WriteAndSyncFile(p, []byte("hello"), 0600))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "snap")
	require.NoError(t, WriteFileAtomic(p, []byte("one"), 0600))
	require.NoError(t, WriteFileAtomic(p, []byte("two"), 0600))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
	_, err = os.Stat(p + TempExt)
	assert.True(t, os.IsNotExist(err))
}
