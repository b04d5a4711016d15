// Package session implements the connection lifecycle state machine shared
// by both endpoints of one WebSocket: it owns the socket, the outbound send
// queue, and (on the relevant side) the pending-request map or the
// in-flight request-id set. client.Client and server.Server each wrap one
// Session per connection and supply a Dispatcher to receive what the
// session produces.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/cyberinferno/chansock/envelope"
	"github.com/cyberinferno/chansock/idgen"
	"github.com/cyberinferno/chansock/logger"
	"github.com/cyberinferno/chansock/safemap"
	"github.com/cyberinferno/chansock/safeset"
	"github.com/cyberinferno/chansock/signal"
)

// Role distinguishes which side of the connection a Session represents.
// The two roles process the same five envelope kinds asymmetrically:
// a server-role session receives Msg/Request and sends Response/Ack/Reject;
// a client-role session receives Msg/Response/Ack/Reject and sends
// Msg/Request.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// outboundItem is one entry in a session's outbound queue: a wire frame
// plus the completion callbacks that advance the originating signal.
type outboundItem struct {
	env      envelope.Envelope
	onSent   func()
	onFailed func()
}

// outbox is the many-writer/single-reader unbounded queue a Session drains
// from its writer goroutine. It follows the mutex-guarded discipline used
// by safeset rather than a fixed-capacity channel, since
// Send/Request must never block on a full buffer.
type outbox struct {
	mu     sync.Mutex
	items  []outboundItem
	wake   chan struct{}
	closed bool
}

func newOutbox() *outbox {
	return &outbox{wake: make(chan struct{}, 1)}
}

func (o *outbox) push(item outboundItem) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.items = append(o.items, item)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return true
}

func (o *outbox) drain() []outboundItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	items := o.items
	o.items = nil
	return items
}

// closeAndDrain marks the outbox closed (further push calls fail) and
// returns any items that were still queued, so the caller can fail them.
func (o *outbox) closeAndDrain() []outboundItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	items := o.items
	o.items = nil
	return items
}

// Session is one live WebSocket connection's shared state: the socket, the
// outbound queue, and (depending on Role) the pending-request map or the
// in-flight request-id set. A Session is created already Connected; the
// handshake itself happens one layer up, in client/server, before the
// Session is constructed.
type Session struct {
	id         uint64
	clientId   idgen.ClientId
	role       Role
	env        envelope.EnvType
	connectMsg []byte

	conn        *websocket.Conn
	state       stateCell
	maxMsgSize  int
	out         *outbox
	dispatcher  Dispatcher
	log         logger.Logger

	// pendingRequests is populated only for RoleClient sessions: it maps a
	// request id this side minted to the signal tracking its fate.
	pendingRequests *safemap.SafeMap[uint64, *signal.Request]

	// activeRequestIds is populated only for RoleServer sessions: it
	// records every request id received on this connection (ids are never
	// removed) so a repeat is detected as a protocol violation.
	activeRequestIds *safeset.SafeSet[uint64]

	terminateOnce sync.Once
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Config bundles the construction-time parameters every Session needs
// regardless of role.
type Config struct {
	Id         uint64
	ClientId   idgen.ClientId
	Role       Role
	Env        envelope.EnvType
	ConnectMsg []byte
	Conn       *websocket.Conn
	MaxMsgSize int
	Dispatcher Dispatcher
	Logger     logger.Logger
}

// New constructs a Session already in the Connected state and starts its
// reader and writer goroutines. The caller must eventually call Close (or
// let a transport error drive the session to Dead on its own).
func New(cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         cfg.Id,
		clientId:   cfg.ClientId,
		role:       cfg.Role,
		env:        cfg.Env,
		connectMsg: cfg.ConnectMsg,
		conn:       cfg.Conn,
		maxMsgSize: cfg.MaxMsgSize,
		out:        newOutbox(),
		dispatcher: cfg.Dispatcher,
		log:        cfg.Logger,
	}
	s.ctx, s.cancel = ctx, cancel
	s.state.moveTo(Connected)

	if cfg.Role == RoleClient {
		s.pendingRequests = safemap.NewSafeMap[uint64, *signal.Request]()
	} else {
		s.activeRequestIds = safeset.NewSafeSet[uint64]()
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()

	return s
}

// ID returns the SessionId given in Config. Server-role sessions get it
// from the server's own sequence; client-role sessions get it from the
// client's own per-dial sequence, since the server does not report one.
func (s *Session) ID() uint64 { return s.id }

// ClientId returns the session's stable client identity.
func (s *Session) ClientId() idgen.ClientId { return s.clientId }

// Role reports which side of the connection this Session represents.
func (s *Session) Role() Role { return s.role }

// EnvType returns the client environment asserted at handshake.
func (s *Session) EnvType() envelope.EnvType { return s.env }

// ConnectMsg returns the payload supplied at handshake time.
func (s *Session) ConnectMsg() []byte { return s.connectMsg }

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state.load() }

// IsDead reports whether the session has fully terminated.
func (s *Session) IsDead() bool { return s.state.load() == Dead }

// Send queues a fire-and-forget message and returns a signal tracking its
// delivery. The signal starts at Sending and transitions to Sent once the
// frame is flushed, or Failed if the session is or becomes unable to
// deliver it.
func (s *Session) Send(payload []byte) (*signal.Message, error) {
	sig := signal.NewMessage()
	ok := s.out.push(outboundItem{
		env:      envelope.Msg(payload),
		onSent:   func() { sig.Set(signal.MessageSent) },
		onFailed: func() { sig.Set(signal.MessageFailed) },
	})
	if !ok {
		sig.Set(signal.MessageFailed)
		return sig, ErrSessionClosing
	}
	return sig, nil
}

// Request queues a client request under requestId and returns a signal
// tracking its fate through to a terminal status. Only meaningful for
// RoleClient sessions; calling it on a server-role session is a programmer
// error the caller (client.Client) must not make. requestId is minted by
// the caller rather than by the session itself, since a session is
// recreated on every reconnect and a per-session counter would restart
// from zero and collide with ids still outstanding on the server.
func (s *Session) Request(requestId uint64, payload []byte) (*signal.Request, error) {
	sig := signal.NewRequest()

	ok := s.out.push(outboundItem{
		env: envelope.Request(requestId, payload),
		onSent: func() {
			sig.Set(signal.RequestWaiting)
			s.pendingRequests.Store(requestId, sig)
		},
		onFailed: func() { sig.Set(signal.RequestSendFailed) },
	})
	if !ok {
		sig.Set(signal.RequestSendFailed)
		return sig, ErrSessionClosing
	}
	return sig, nil
}

// SendEnvelope queues an arbitrary envelope with no signal tracking, used
// by server.RequestToken to transmit Response/Ack/Reject. It reports
// ErrSessionClosing if the session can no longer accept outbound traffic.
func (s *Session) SendEnvelope(env envelope.Envelope) error {
	ok := s.out.push(outboundItem{env: env})
	if !ok {
		return ErrSessionClosing
	}
	return nil
}

// Close begins graceful shutdown: the session stops accepting new inbound
// frames, drains its outbound queue, and transitions to Dead. Close is
// idempotent.
func (s *Session) Close() {
	s.terminate(nil)
}

// Wait blocks until both the reader and writer goroutines have exited.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.out.wake:
			for _, item := range s.out.drain() {
				s.writeOne(item)
			}
		}
	}
}

func (s *Session) writeOne(item outboundItem) {
	if s.state.load() >= Closing {
		if item.onFailed != nil {
			item.onFailed()
		}
		return
	}

	frame, err := envelope.Encode(item.env)
	if err != nil {
		if item.onFailed != nil {
			item.onFailed()
		}
		s.log.Error("session: failed encoding outbound envelope", logger.Field{Key: "error", Value: err})
		return
	}

	if s.maxMsgSize > 0 && len(frame) > s.maxMsgSize {
		if item.onFailed != nil {
			item.onFailed()
		}
		s.terminate(fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame)))
		return
	}

	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		if item.onFailed != nil {
			item.onFailed()
		}
		s.terminate(err)
		return
	}

	if item.onSent != nil {
		item.onSent()
	}
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.terminate(err)
			return
		}

		if s.maxMsgSize > 0 && len(frame) > s.maxMsgSize {
			err := fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
			s.dispatcher.DeliverProtocolError(s, err)
			s.terminate(err)
			return
		}

		env, err := envelope.Decode(frame)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrProtocolViolation, err)
			s.dispatcher.DeliverProtocolError(s, err)
			s.terminate(err)
			return
		}

		if violation := s.handleInbound(env); violation != nil {
			s.dispatcher.DeliverProtocolError(s, violation)
			s.terminate(violation)
			return
		}
	}
}

// handleInbound dispatches one decoded envelope. It returns a non-nil
// error exactly when the frame is a protocol violation the connection must
// be terminated for.
func (s *Session) handleInbound(env envelope.Envelope) error {
	switch env.Kind {
	case envelope.KindMsg:
		s.dispatcher.DeliverMsg(s, env.Payload)
		return nil

	case envelope.KindRequest:
		if s.role != RoleServer {
			return fmt.Errorf("%w: request received by a client-role session", ErrProtocolViolation)
		}
		if !s.activeRequestIds.AddIfAbsent(env.RequestId) {
			return fmt.Errorf("%w: duplicate request id %d", ErrProtocolViolation, env.RequestId)
		}
		s.dispatcher.DeliverRequest(s, env.RequestId, env.Payload)
		return nil

	case envelope.KindResponse:
		if s.role != RoleClient {
			return fmt.Errorf("%w: response received by a server-role session", ErrProtocolViolation)
		}
		sig, ok := s.pendingRequests.Load(env.RequestId)
		if !ok {
			return fmt.Errorf("%w: response for unknown request id %d", ErrProtocolViolation, env.RequestId)
		}
		sig.SetResponse(env.Payload)
		s.pendingRequests.Delete(env.RequestId)
		s.dispatcher.DeliverResponse(s, env.RequestId, env.Payload)
		return nil

	case envelope.KindAck:
		if s.role != RoleClient {
			return fmt.Errorf("%w: ack received by a server-role session", ErrProtocolViolation)
		}
		sig, ok := s.pendingRequests.Load(env.RequestId)
		if !ok {
			return fmt.Errorf("%w: ack for unknown request id %d", ErrProtocolViolation, env.RequestId)
		}
		sig.Set(signal.RequestAcknowledged)
		s.pendingRequests.Delete(env.RequestId)
		s.dispatcher.DeliverAck(s, env.RequestId)
		return nil

	case envelope.KindReject:
		if s.role != RoleClient {
			return fmt.Errorf("%w: reject received by a server-role session", ErrProtocolViolation)
		}
		sig, ok := s.pendingRequests.Load(env.RequestId)
		if !ok {
			return fmt.Errorf("%w: reject for unknown request id %d", ErrProtocolViolation, env.RequestId)
		}
		sig.Set(signal.RequestRejected)
		s.pendingRequests.Delete(env.RequestId)
		s.dispatcher.DeliverReject(s, env.RequestId)
		return nil

	default:
		return fmt.Errorf("%w: %w: %d", ErrProtocolViolation, envelope.ErrUnknownKind, env.Kind)
	}
}

// terminate runs the disconnect sequence exactly once regardless of how
// many goroutines call it concurrently: transition to Closing, drain and
// fail the outbound queue, mark every pending request ResponseLost, notify
// the dispatcher, then transition to Dead.
func (s *Session) terminate(cause error) {
	s.terminateOnce.Do(func() {
		s.state.moveTo(Closing)
		s.cancel()

		for _, item := range s.out.closeAndDrain() {
			if item.onFailed != nil {
				item.onFailed()
			}
		}

		if s.pendingRequests != nil {
			s.pendingRequests.Range(func(requestId uint64, sig *signal.Request) bool {
				sig.Set(signal.RequestResponseLost)
				return true
			})
		}

		_ = s.conn.Close()

		if cause != nil && !errors.Is(cause, context.Canceled) {
			s.log.Warn("session: terminating", logger.Field{Key: "session_id", Value: s.id}, logger.Field{Key: "error", Value: cause})
		}

		s.dispatcher.DeliverDisconnect(s, cause)
		s.state.moveTo(Dead)
	})
}
