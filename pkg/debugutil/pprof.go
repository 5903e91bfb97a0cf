// Package debugutil exposes the runtime profilers over HTTP.
package debugutil

import (
	"net/http"
	"net/http/pprof"
	"runtime"
)

const HTTPPrefixPProf = "/debug/pprof"

// mutexProfileFraction samples one in five contended mutex events.
const mutexProfileFraction = 5

var namedProfiles = []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"}

// PProfHandlers returns the pprof handlers keyed by HTTP path. Mutex
// profiling is enabled unless the process already chose a fraction.
func PProfHandlers() map[string]http.Handler {
	if runtime.SetMutexProfileFraction(-1) == 0 {
		runtime.SetMutexProfileFraction(mutexProfileFraction)
	}

	m := map[string]http.Handler{
		HTTPPrefixPProf + "/":        http.HandlerFunc(pprof.Index),
		HTTPPrefixPProf + "/profile": http.HandlerFunc(pprof.Profile),
		HTTPPrefixPProf + "/symbol":  http.HandlerFunc(pprof.Symbol),
		HTTPPrefixPProf + "/cmdline": http.HandlerFunc(pprof.Cmdline),
		HTTPPrefixPProf + "/trace":   http.HandlerFunc(pprof.Trace),
	}
	for _, name := range namedProfiles {
		m[HTTPPrefixPProf+"/"+name] = pprof.Handler(name)
	}
	return m
}
