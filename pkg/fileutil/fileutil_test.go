package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchDirAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, TouchDirAll(dir))
	assert.True(t, Exist(dir))
	assert.False(t, Exist(filepath.Join(dir, ".touch")))
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"def", "abc", "xyz.tmp", "ghi.tmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, PrivateFileMode))
	}
	names, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def", "ghi.tmp", "xyz.tmp"}, names)

	names, err = ReadDir(dir, WithExt(".tmp"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ghi.tmp", "xyz.tmp"}, names)
}
