package client

import "errors"

var (
	// ErrClientClosed is returned by Send/Request/etc. once Close has
	// been called.
	ErrClientClosed = errors.New("client: client is closed")

	// ErrConnectFailed is the terminal reason recorded when the very
	// first handshake never succeeds within MaxInitialConnectAttempts.
	ErrConnectFailed = errors.New("client: initial connect failed")

	// ErrServerClosed is the terminal/disconnect reason recorded when the
	// server closes the session gracefully and ReconnectOnServerClose is
	// false.
	ErrServerClosed = errors.New("client: server closed the session")

	// ErrClosedBySelf is the reason recorded when Close was called
	// explicitly.
	ErrClosedBySelf = errors.New("client: closed by caller")
)
