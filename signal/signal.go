// Package signal implements the observable status handles returned by a
// session's send and request operations. A signal is a small, cheaply
// cloneable handle over a shared atomic cell: cloning copies the pointer,
// never the cell, so many goroutines can hold and read the same signal
// without synchronizing with the session that writes it. Status only ever
// advances toward a terminal value; once a cell reaches a terminal status
// further writes are dropped, mirroring the one-shot close guard in
// logger.DailyFileWriter.
package signal

import "sync/atomic"

// MessageStatus is the lifecycle of a fire-and-forget send.
type MessageStatus uint32

const (
	MessageSending MessageStatus = iota
	MessageSent
	MessageFailed
)

// String renders the status for logging.
func (s MessageStatus) String() string {
	switch s {
	case MessageSending:
		return "Sending"
	case MessageSent:
		return "Sent"
	case MessageFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is one of the statuses a Message can no
// longer leave.
func (s MessageStatus) IsTerminal() bool {
	return s == MessageSent || s == MessageFailed
}

// RequestStatus is the lifecycle of a client-issued request.
type RequestStatus uint32

const (
	RequestSending RequestStatus = iota
	RequestWaiting
	RequestResponded
	RequestAcknowledged
	RequestRejected
	RequestResponseLost
	RequestSendFailed
)

// String renders the status for logging.
func (s RequestStatus) String() string {
	switch s {
	case RequestSending:
		return "Sending"
	case RequestWaiting:
		return "Waiting"
	case RequestResponded:
		return "Responded"
	case RequestAcknowledged:
		return "Acknowledged"
	case RequestRejected:
		return "Rejected"
	case RequestResponseLost:
		return "ResponseLost"
	case RequestSendFailed:
		return "SendFailed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is one of the statuses a Request can no
// longer leave.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestResponded, RequestAcknowledged, RequestRejected, RequestResponseLost, RequestSendFailed:
		return true
	default:
		return false
	}
}

// cell is the shared, atomically-updated backing store for one Message or
// Request signal. Every clone of a handle points at the same cell.
type cell struct {
	status   atomic.Uint32
	settled  atomic.Bool
	payload  atomic.Value // holds []byte, set alongside a Responded transition
}

// Message is an observable handle over the lifecycle of one outbound
// fire-and-forget send. It is safe to read from any goroutine and safe to
// clone by value; clones share the same underlying cell.
type Message struct {
	c *cell
}

// NewMessage creates a Message signal in the Sending status. Only the
// session that owns the send should hold the returned value long enough to
// call Set; callers that just want to observe the outcome should keep the
// Message itself.
func NewMessage() *Message {
	m := &Message{c: &cell{}}
	m.c.status.Store(uint32(MessageSending))
	return m
}

// Status returns the current status of the signal.
func (m *Message) Status() MessageStatus {
	return MessageStatus(m.c.status.Load())
}

// Set advances the signal to status. Once the signal has reached a terminal
// status, further calls are no-ops: status is write-once-monotonic to a
// terminal value.
func (m *Message) Set(status MessageStatus) {
	if m.c.settled.Load() {
		return
	}
	if status.IsTerminal() {
		if !m.c.settled.CompareAndSwap(false, true) {
			return
		}
	}
	m.c.status.Store(uint32(status))
}

// Request is an observable handle over the lifecycle of one client-issued
// request. It is safe to read from any goroutine and safe to clone by
// value; clones share the same underlying cell.
type Request struct {
	c *cell
}

// NewRequest creates a Request signal in the Sending status.
func NewRequest() *Request {
	r := &Request{c: &cell{}}
	r.c.status.Store(uint32(RequestSending))
	return r
}

// Status returns the current status of the signal.
func (r *Request) Status() RequestStatus {
	return RequestStatus(r.c.status.Load())
}

// Set advances the signal to status. Once the signal has reached a terminal
// status, further calls are no-ops.
func (r *Request) Set(status RequestStatus) {
	if r.c.settled.Load() {
		return
	}
	if status.IsTerminal() {
		if !r.c.settled.CompareAndSwap(false, true) {
			return
		}
	}
	r.c.status.Store(uint32(status))
}

// SetResponse advances the signal to Responded and records the response
// payload, which can be read back with Response. It is subject to the same
// write-once-to-terminal discipline as Set.
func (r *Request) SetResponse(payload []byte) {
	if r.c.settled.Load() {
		return
	}
	if !r.c.settled.CompareAndSwap(false, true) {
		return
	}
	r.c.payload.Store(payload)
	r.c.status.Store(uint32(RequestResponded))
}

// Response returns the payload recorded by SetResponse, or nil if the
// signal never reached Responded.
func (r *Request) Response() []byte {
	v := r.c.payload.Load()
	if v == nil {
		return nil
	}
	return v.([]byte)
}
