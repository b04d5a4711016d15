package client

import "time"

// ClientConfig holds the reconnect and liveness tunables spec.md §6
// assigns to the client side.
type ClientConfig struct {
	// ReconnectOnDisconnect enables automatic reconnection after a
	// transport failure (read/write error, missed heartbeats).
	ReconnectOnDisconnect bool
	// ReconnectOnServerClose enables automatic reconnection after the
	// server closes the session gracefully (as opposed to a transport
	// failure). Independent of ReconnectOnDisconnect since a graceful
	// server close is a distinct, deliberate signal.
	ReconnectOnServerClose bool
	// ReconnectIntervalMin/Max bound the exponential backoff applied
	// between reconnect attempts.
	ReconnectIntervalMin time.Duration
	ReconnectIntervalMax time.Duration
	// HeartbeatInterval drives the application-level ping; 0 disables
	// heartbeating.
	HeartbeatInterval time.Duration
	// MaxMissedHeartbeats is the number of consecutive un-ponged pings
	// treated as a transport failure.
	MaxMissedHeartbeats int
	// MaxInitialConnectAttempts bounds only the very first handshake;
	// exhausting it without ever reaching Connected is terminal.
	MaxInitialConnectAttempts int
	// MaxMsgSize caps the size of one inbound WebSocket frame; 0 means
	// no limit beyond gorilla/websocket's own default.
	MaxMsgSize int
}

// DefaultClientConfig returns sane defaults, mirroring the teacher's
// DefaultEventDrivenTCPClientConfig constructor-alongside-struct pattern.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectOnDisconnect:     true,
		ReconnectOnServerClose:    true,
		ReconnectIntervalMin:      500 * time.Millisecond,
		ReconnectIntervalMax:      30 * time.Second,
		HeartbeatInterval:         15 * time.Second,
		MaxMissedHeartbeats:       3,
		MaxInitialConnectAttempts: 1,
		MaxMsgSize:                1 << 20,
	}
}
