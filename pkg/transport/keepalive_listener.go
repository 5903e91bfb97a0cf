package transport

import (
	"net"
	"time"
)

const keepAlivePeriod = 30 * time.Second

type keepAliveConn interface {
	SetKeepAlive(bool) error
	SetKeepAlivePeriod(d time.Duration) error
}

// NewKeepAliveListener turns on TCP keepalive for every accepted connection
// that supports it.
func NewKeepAliveListener(l net.Listener) net.Listener {
	return &keepaliveListener{Listener: l}
}

type keepaliveListener struct{ net.Listener }

func (kln *keepaliveListener) Accept() (net.Conn, error) {
	c, err := kln.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if kac, ok := c.(keepAliveConn); ok {
		// detection time: tcp_keepalive_time + tcp_keepalive_probes + tcp_keepalive_intvl
		// default on linux:  30 + 8 * 30
		kac.SetKeepAlive(true)
		kac.SetKeepAlivePeriod(keepAlivePeriod)
	}
	return c, nil
}
