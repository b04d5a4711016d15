// Package envelope defines the wire-level message shape carried in every
// WebSocket binary frame, plus the handshake prelude exchanged during the
// HTTP upgrade. An Envelope is a discriminated union: exactly one of the
// five Kind values applies, and the discriminator is always the first byte
// on the wire so a receiver that doesn't recognize it can fail fast.
package envelope

import "errors"

// Kind discriminates the five envelope shapes.
type Kind byte

const (
	KindMsg Kind = iota + 1
	KindRequest
	KindResponse
	KindAck
	KindReject
)

// String renders the kind for logging.
func (k Kind) String() string {
	switch k {
	case KindMsg:
		return "Msg"
	case KindRequest:
		return "Request"
	case KindResponse:
		return "Response"
	case KindAck:
		return "Ack"
	case KindReject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// ErrUnknownKind is returned by Decode when the leading discriminator byte
// does not match any known Kind. The caller (session) must terminate the
// connection with a protocol error on receiving this.
var ErrUnknownKind = errors.New("envelope: unknown kind")

// ErrTruncated is returned by Decode when the buffer ends before a
// length-prefixed field can be fully read.
var ErrTruncated = errors.New("envelope: truncated frame")

// Envelope is the parsed form of one wire frame. Only the fields relevant
// to Kind are meaningful; callers should switch on Kind before reading
// RequestId/Payload.
type Envelope struct {
	Kind      Kind
	RequestId uint64
	Payload   []byte
}

// Msg constructs a fire-and-forget message envelope.
func Msg(payload []byte) Envelope {
	return Envelope{Kind: KindMsg, Payload: payload}
}

// Request constructs a client request envelope.
func Request(requestId uint64, payload []byte) Envelope {
	return Envelope{Kind: KindRequest, RequestId: requestId, Payload: payload}
}

// Response constructs a server response envelope.
func Response(requestId uint64, payload []byte) Envelope {
	return Envelope{Kind: KindResponse, RequestId: requestId, Payload: payload}
}

// Ack constructs an acknowledgement envelope.
func Ack(requestId uint64) Envelope {
	return Envelope{Kind: KindAck, RequestId: requestId}
}

// Reject constructs a rejection envelope.
func Reject(requestId uint64) Envelope {
	return Envelope{Kind: KindReject, RequestId: requestId}
}
