package discoverymain

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigParsingMemberFlags(t *testing.T) {
	dir := t.TempDir()
	args := []string{
		"-name=testname",
		"-data-dir=" + dir,
		"-backend=badger",
		"-listen-client-urls=http://127.0.0.1:4001,unix:///tmp/ud.sock",
		"-listen-metrics-urls=http://127.0.0.1:4002",
		"-sweep-interval=2s",
		"-expire-rate=7",
		"-quota-snapshot-bytes=4096",
		"-log-outputs=stderr",
		"-metrics=extensive",
	}

	cfg := newConfig()
	require.NoError(t, cfg.parse(args))

	assert.Equal(t, "testname", cfg.ec.Name)
	assert.Equal(t, dir, cfg.ec.Dir)
	assert.Equal(t, backend.KindBadger, cfg.ec.Backend)
	require.Len(t, cfg.ec.LCUrls, 2)
	assert.Equal(t, "http://127.0.0.1:4001", cfg.ec.LCUrls[0].String())
	require.Len(t, cfg.ec.ListenMetricsUrls, 1)
	assert.Equal(t, 2*time.Second, cfg.ec.SweepInterval)
	assert.Equal(t, 7, cfg.ec.ExpireRate)
	assert.Equal(t, int64(4096), cfg.ec.QuotaSnapshotBytes)
	assert.Equal(t, []string{"stderr"}, cfg.ec.LogOutputs)
	assert.Equal(t, "extensive", cfg.ec.Metrics)
}

func TestConfigParsingEnv(t *testing.T) {
	t.Setenv("UDISCOVERY_NAME", "from-env")
	t.Setenv("UDISCOVERY_BACKEND", "memory")
	t.Setenv("UDISCOVERY_LOG_OUTPUTS", "stderr")

	cfg := newConfig()
	require.NoError(t, cfg.parse([]string{"-expire-rate=3"}))
	assert.Equal(t, "from-env", cfg.ec.Name)
	assert.Equal(t, backend.KindMemory, cfg.ec.Backend)
	assert.Equal(t, 3, cfg.ec.ExpireRate)
	assert.Empty(t, cfg.ec.Dir, "memory backend needs no data dir")
}

func TestConfigDefaultDataDir(t *testing.T) {
	cfg := newConfig()
	cfg.ec.Name = "vehicle"
	cfg.ec.Backend = backend.KindBolt
	cfg.defaultDataDir()
	assert.Equal(t, "vehicle.udiscovery", cfg.ec.Dir)
}

func TestConfigFileIgnoresFlags(t *testing.T) {
	p := filepath.Join(t.TempDir(), "udiscovery.yml")
	require.NoError(t, os.WriteFile(p, []byte("name: from-file\nbackend: memory\nlog-outputs: [stderr]\n"), 0600))

	cfg := newConfig()
	require.NoError(t, cfg.parse([]string{"-config-file=" + p, "-name=from-flag"}))
	assert.Equal(t, "from-file", cfg.ec.Name)
	assert.Equal(t, backend.KindMemory, cfg.ec.Backend)
}

func TestConfigParsingInvalid(t *testing.T) {
	cfg := newConfig()
	assert.Error(t, cfg.parse([]string{"-backend=memory", "-log-outputs=stderr", "-sweep-interval=0s"}))

	cfg = newConfig()
	assert.Error(t, cfg.parse([]string{"-backend=memory", "-log-outputs=stderr", "not-a-flag"}))
}

func TestCheckDataDirWarnsAboutOtherBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0600))

	core, logs := observer.New(zap.WarnLevel)
	checkDataDir(zap.New(core), dir, backend.KindBadger)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "db", logs.All()[0].ContextMap()["filename"])

	core, logs = observer.New(zap.WarnLevel)
	checkDataDir(zap.New(core), dir, "")
	assert.Equal(t, 0, logs.Len(), "bolt is the default backend")

	checkDataDir(zaptest.NewLogger(t), filepath.Join(dir, "missing"), backend.KindBolt)
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "udiscovery Version: ")
	assert.Contains(t, buf.String(), "Go OS/Arch: ")
}

func TestStartDiscovery(t *testing.T) {
	cfg := embed.NewConfig()
	cfg.Backend = backend.KindMemory
	cfg.LCUrls[0].Host = "127.0.0.1:0"
	cfg.ZapLoggerBuilder = embed.NewZapLoggerBuilder(zaptest.NewLogger(t))

	e, err := startDiscovery(cfg)
	require.NoError(t, err)
	select {
	case <-e.Server.StopNotify():
		t.Fatal("server stopped right after starting")
	default:
	}
	e.Close()
	<-e.Server.StopNotify()
}
