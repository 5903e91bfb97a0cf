//go:build !windows && !plan9

// Package osutil runs registered handlers before the process exits on a
// termination signal.
package osutil

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// InterruptHandler runs once when SIGINT or SIGTERM arrives.
type InterruptHandler func()

var (
	handlersMu sync.Mutex
	handlers   []InterruptHandler

	// exitMu is held while handlers run so Exit cannot cut them short.
	exitMu sync.Mutex
)

// RegisterInterruptHandler appends h to the handlers run on a termination
// signal. Handlers run in registration order; one registered after the
// signal arrived is not run.
func RegisterInterruptHandler(h InterruptHandler) {
	handlersMu.Lock()
	handlers = append(handlers, h)
	handlersMu.Unlock()
}

func registeredHandlers() []InterruptHandler {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	return append([]InterruptHandler(nil), handlers...)
}

// HandleInterrupts waits in the background for SIGINT or SIGTERM, runs the
// registered handlers, then re-raises the signal with the default action.
func HandleInterrupts(lg *zap.Logger) {
	if lg == nil {
		lg = zap.NewNop()
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigc
		hs := registeredHandlers()

		exitMu.Lock()
		lg.Info("received signal; shutting down", zap.String("signal", sig.String()), zap.Int("handlers", len(hs)))
		for _, h := range hs {
			h()
		}
		signal.Stop(sigc)

		pid := syscall.Getpid()
		// pid 1 ignores signals without a handler.
		if pid == 1 {
			os.Exit(0)
		}
		syscall.Kill(pid, sig.(syscall.Signal))
	}()
}

// Exit calls os.Exit once no interrupt handlers are running.
func Exit(code int) {
	exitMu.Lock()
	os.Exit(code)
}
