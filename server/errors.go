package server

import "errors"

var (
	// ErrDuplicateClientId is returned when a handshake asserts a
	// ClientId already live in the session table.
	ErrDuplicateClientId = errors.New("server: client id already connected")

	// ErrUnknownClient is returned by Send/Respond/Ack/Reject/Disconnect
	// when no live session matches the given client id.
	ErrUnknownClient = errors.New("server: unknown client id")

	// ErrVersionMismatch mirrors envelope.ErrVersionMismatch at the
	// server's handshake boundary.
	ErrVersionMismatch = errors.New("server: protocol version mismatch")

	// ErrMaxConnections is returned when the acceptor rejects a new
	// connection because ServerConfig.MaxConnections has been reached.
	ErrMaxConnections = errors.New("server: max connections reached")

	// ErrTokenAlreadyConsumed is returned by Respond/Ack/Reject when the
	// RequestToken has already been used or dropped.
	ErrTokenAlreadyConsumed = errors.New("server: request token already consumed")

	// ErrServerClosed is returned by operations attempted after Shutdown.
	ErrServerClosed = errors.New("server: server is shut down")

	// TLS configuration errors, ported from the pack's transport
	// validation idiom (cert/key/CA presence, mutual-TLS requirements).
	ErrTLSCertRequired = errors.New("server: tls certificate required")
	ErrTLSKeyRequired  = errors.New("server: tls key required")
	ErrTLSCARequired   = errors.New("server: tls ca required for mutual tls")
)
