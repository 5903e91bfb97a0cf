package discoveryserver

import (
	"time"

	"github.com/iScript/udiscovery/backend"

	"go.uber.org/zap"
)

// OpenBackend opens the snapshot backend selected by cfg. Opening bolt
// blocks while another process holds the file lock; that is logged after a
// while and the call keeps waiting.
func OpenBackend(cfg ServerConfig) (backend.Backend, error) {
	bcfg := cfg.backendConfig()
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}

	type result struct {
		be  backend.Backend
		err error
	}
	now, beOpened := time.Now(), make(chan result, 1)
	go func() {
		be, err := backend.Open(bcfg)
		beOpened <- result{be, err}
	}()

	select {
	case r := <-beOpened:
		if r.err == nil {
			lg.Info("opened backend", zap.String("kind", bcfg.Kind), zap.String("dir", bcfg.Dir), zap.Duration("took", time.Since(now)))
		}
		return r.be, r.err

	case <-time.After(10 * time.Second):
		lg.Info(
			"db file is flocked by another process, or taking too long",
			zap.String("kind", bcfg.Kind),
			zap.String("dir", bcfg.Dir),
			zap.Duration("took", time.Since(now)),
		)
	}

	r := <-beOpened
	return r.be, r.err
}
