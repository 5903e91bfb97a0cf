package backend

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRoundTrip(t *testing.T, open func() Backend) {
	t.Helper()
	b := open()
	_, err := b.Load()
	require.True(t, errors.Is(err, ErrNotFound), "fresh backend must report ErrNotFound, got %v", err)
	assert.Equal(t, int64(0), b.Size())

	require.NoError(t, b.Save([]byte("first")))
	require.NoError(t, b.Save([]byte("second snapshot")))
	data, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, "second snapshot", string(data))
	assert.Equal(t, int64(len("second snapshot")), b.Size())
	require.NoError(t, b.Close())

	// reopen sees the last saved value
	b = open()
	defer b.Close()
	data, err = b.Load()
	require.NoError(t, err)
	assert.Equal(t, "second snapshot", string(data))
	assert.Equal(t, int64(len("second snapshot")), b.Size())
}

func TestBoltBackend(t *testing.T) {
	dir := t.TempDir()
	testRoundTrip(t, func() Backend {
		b, err := Open(Config{Kind: KindBolt, Dir: dir, Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)
		assert.Equal(t, KindBolt, b.Kind())
		return b
	})
	assert.FileExists(t, filepath.Join(dir, "db"))
}

func TestBadgerBackend(t *testing.T) {
	dir := t.TempDir()
	testRoundTrip(t, func() Backend {
		b, err := Open(Config{Kind: KindBadger, Dir: dir, SyncWrites: true, Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)
		assert.Equal(t, KindBadger, b.Kind())
		return b
	})
}

func TestBadgerInMemory(t *testing.T) {
	b, err := NewBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Save([]byte("x")))
	data, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	testRoundTrip(t, func() Backend {
		b, err := Open(Config{Kind: KindFile, Dir: dir, Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)
		return b
	})
	assert.FileExists(t, filepath.Join(dir, "udiscovery.snap"))
}

func TestFileBackendRemovesStaleTemp(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "udiscovery.snap.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0600))

	b, err := NewFile(zaptest.NewLogger(t), filepath.Join(dir, "udiscovery.snap"))
	require.NoError(t, err)
	defer b.Close()
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryBackend(t *testing.T) {
	m := NewMemory()
	_, err := m.Load()
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, m.Save([]byte("a")))
	boom := errors.New("disk full")
	m.SetSaveError(boom)
	assert.Equal(t, boom, m.Save([]byte("b")))
	m.SetSaveError(nil)

	data, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	assert.Equal(t, 1, m.Saves())

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(Config{Kind: "tape", Dir: t.TempDir()})
	assert.Error(t, err)
}
