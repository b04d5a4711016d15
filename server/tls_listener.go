package server

import (
	"crypto/tls"
	"net"
)

// newTLSListener wraps ln so every accepted connection performs a TLS
// handshake using cfg before the HTTP server reads from it.
func newTLSListener(ln net.Listener, cfg *tls.Config) net.Listener {
	return tls.NewListener(ln, cfg)
}
