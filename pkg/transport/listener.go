package transport

import (
	"fmt"
	"net"
	"net/url"
)

// NewListener listens on the host of u. "unix" URLs listen on a socket
// path; "http" URLs listen on TCP with keepalive enabled on accepted
// connections.
func NewListener(u url.URL) (net.Listener, error) {
	switch u.Scheme {
	case "unix":
		addr := u.Host + u.Path
		if addr == "" {
			return nil, fmt.Errorf("unix url %q has no socket path", u.String())
		}
		return NewUnixListener(addr)
	case "http":
		l, err := net.Listen("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return NewKeepAliveListener(l), nil
	default:
		return nil, fmt.Errorf("unsupported listen scheme %q (want http or unix)", u.Scheme)
	}
}
