// Package discoverymain is the entry point of the udiscovery daemon.
package discoverymain

import (
	"fmt"
	"os"
	"runtime"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
)

// Main runs the daemon until it is interrupted or fails.
func Main() {
	checkSupportArch()
	startDiscoveryOrExit(os.Args[1:])
}

func notifySystemd(lg *zap.Logger) {
	lg.Info("notifying init daemon")
	_, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		lg.Error("failed to notify systemd for readiness", zap.Error(err))
		return
	}
	lg.Info("successfully notified init daemon")
}

func checkSupportArch() {
	if runtime.GOARCH == "amd64" ||
		runtime.GOARCH == "arm64" ||
		runtime.GOARCH == "ppc64le" ||
		runtime.GOARCH == "s390x" {
		return
	}
	// unsupported arch only configured via environment variable
	// so unset here to not parse through flag
	defer os.Unsetenv("UDISCOVERY_UNSUPPORTED_ARCH")
	if env, ok := os.LookupEnv("UDISCOVERY_UNSUPPORTED_ARCH"); ok && env == runtime.GOARCH {
		fmt.Printf("running udiscovery on unsupported architecture %q since UDISCOVERY_UNSUPPORTED_ARCH is set\n", env)
		return
	}

	fmt.Printf("udiscovery on unsupported platform without UDISCOVERY_UNSUPPORTED_ARCH=%s set\n", runtime.GOARCH)
	os.Exit(1)
}
