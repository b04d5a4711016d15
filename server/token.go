package server

import (
	"runtime"
	"sync"

	"github.com/cyberinferno/chansock/envelope"
	"github.com/cyberinferno/chansock/idgen"
	"github.com/cyberinferno/chansock/session"
)

// RequestToken is the server's single-use capability to answer one inbound
// request. It is handed to the application via Report.Token and must be
// consumed by exactly one of Respond/Ack/Reject. Go has no destructor, so a
// token dropped without being consumed (the application never touches
// Report.Token, or overwrites its only reference) relies on a finalizer to
// send Reject once the token is garbage collected, so the client is never
// left waiting forever on a server that simply forgot to answer.
type RequestToken struct {
	mu        sync.Mutex
	consumed  bool
	sess      *session.Session
	requestId uint64
}

func newRequestToken(sess *session.Session, requestId uint64) *RequestToken {
	t := &RequestToken{sess: sess, requestId: requestId}
	runtime.SetFinalizer(t, (*RequestToken).Release)
	return t
}

// ClientId identifies which client this token answers.
func (t *RequestToken) ClientId() idgen.ClientId { return t.sess.ClientId() }

// destinationIsDead reports whether the owning session has already torn
// down, in which case consuming the token is a harmless no-op rather than
// an error: the client is gone either way.
func (t *RequestToken) destinationIsDead() bool {
	return t.sess.IsDead()
}

func (t *RequestToken) consume() (already bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.consumed {
		return true
	}
	t.consumed = true
	runtime.SetFinalizer(t, nil)
	return false
}

// Respond answers the request with a payload, transitioning the client's
// pending signal to RequestResponded.
func (t *RequestToken) Respond(payload []byte) error {
	if t.consume() {
		return ErrTokenAlreadyConsumed
	}
	if t.destinationIsDead() {
		return nil
	}
	return t.sess.SendEnvelope(envelope.Response(t.requestId, payload))
}

// Ack acknowledges the request without a payload, transitioning the
// client's pending signal to RequestAcknowledged.
func (t *RequestToken) Ack() error {
	if t.consume() {
		return ErrTokenAlreadyConsumed
	}
	if t.destinationIsDead() {
		return nil
	}
	return t.sess.SendEnvelope(envelope.Ack(t.requestId))
}

// Reject refuses the request, transitioning the client's pending signal to
// RequestRejected.
func (t *RequestToken) Reject() error {
	if t.consume() {
		return ErrTokenAlreadyConsumed
	}
	if t.destinationIsDead() {
		return nil
	}
	return t.sess.SendEnvelope(envelope.Reject(t.requestId))
}

// Release rejects the request if it has not already been consumed. It is
// the token's finalizer (set in newRequestToken, cleared by consume once
// Respond/Ack/Reject runs), so an application that drops a Report.Token
// without answering it still lets the client's pending signal resolve, once
// the garbage collector reclaims the token. Safe to call directly too.
func (t *RequestToken) Release() {
	_ = t.Reject()
}
