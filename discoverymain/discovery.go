package discoverymain

import (
	"os"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/embed"
	"github.com/iScript/udiscovery/pkg/fileutil"
	"github.com/iScript/udiscovery/pkg/osutil"

	"github.com/coreos/pkg/capnslog"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var plog = capnslog.NewPackageLogger("github.com/iScript/udiscovery", "discoverymain")

// backendFiles names the entry each persistent backend keeps under the
// data directory.
var backendFiles = map[string]string{
	"db":              backend.KindBolt,
	"badger":          backend.KindBadger,
	"udiscovery.snap": backend.KindFile,
}

func startDiscoveryOrExit(args []string) {
	grpc.EnableTracing = false

	cfg := newConfig()
	err := cfg.parse(args)
	lg := cfg.ec.GetLogger()
	if err != nil {
		if lg != nil {
			lg.Warn("failed to verify flags", zap.Error(err))
		} else {
			plog.Errorf("error verifying flags, %v. See 'udiscovery --help'.", err)
		}
		os.Exit(1)
	}

	defer func() {
		logger := cfg.ec.GetLogger()
		if logger != nil {
			logger.Sync()
		}
	}()

	if cfg.ec.Dir != "" {
		checkDataDir(lg, cfg.ec.Dir, cfg.ec.Backend)
	}

	e, err := startDiscovery(&cfg.ec)
	if err != nil {
		lg.Fatal("discovery failed", zap.Error(err))
	}

	osutil.HandleInterrupts(lg)

	// At this point, the initialization of the daemon is done.
	// The listeners are listening on the TCP ports and ready
	// for accepting connections. The daemon is serving.
	notifySystemd(lg)

	select {
	case lerr := <-e.Err():
		// fatal out on listener errors
		lg.Fatal("listener failed", zap.Error(lerr))
	case <-e.Server.StopNotify():
	}

	osutil.Exit(0)
}

// startDiscovery runs StartDiscovery in addition to hooks needed for
// standalone daemon.
func startDiscovery(cfg *embed.Config) (*embed.Discovery, error) {
	e, err := embed.StartDiscovery(cfg)
	if err != nil {
		return nil, err
	}
	osutil.RegisterInterruptHandler(e.Close)
	return e, nil
}

// checkDataDir warns about snapshot entries under dir that belong to a
// backend other than kind; their contents will not be loaded.
func checkDataDir(lg *zap.Logger, dir, kind string) {
	names, err := fileutil.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		lg.Fatal("failed to list data directory", zap.String("dir", dir), zap.Error(err))
	}
	if kind == "" {
		kind = backend.KindBolt
	}
	for _, name := range names {
		other, ok := backendFiles[name]
		if !ok || other == kind {
			continue
		}
		lg.Warn(
			"found snapshot of another backend under data directory; it will not be loaded",
			zap.String("filename", name),
			zap.String("found-backend", other),
			zap.String("backend", kind),
			zap.String("data-dir", dir),
		)
	}
}
