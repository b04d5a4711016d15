package session

import "errors"

var (
	// ErrProtocolViolation wraps every reason a session terminates a
	// connection due to a malformed or out-of-contract frame: an unknown
	// envelope discriminator, a duplicate request id from the same
	// session, or a Response/Ack/Reject targeting no live request.
	ErrProtocolViolation = errors.New("session: protocol violation")

	// ErrSessionClosing is returned by Send/Request/Respond/Ack/Reject
	// once the session has begun Closing; such calls resolve their
	// signal (if any) to a failed terminal state rather than queuing.
	ErrSessionClosing = errors.New("session: session is closing")

	// ErrFrameTooLarge is returned when an outbound or inbound frame
	// exceeds the configured maximum message size.
	ErrFrameTooLarge = errors.New("session: frame too large")
)
