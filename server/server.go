// Package server implements the acceptor and session registry side of a
// chansock deployment: it upgrades incoming HTTP connections to WebSocket,
// runs the handshake/admission sequence, and fans every session's inbound
// traffic into one application-facing event queue.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/cyberinferno/chansock/envelope"
	"github.com/cyberinferno/chansock/eventqueue"
	"github.com/cyberinferno/chansock/idgen"
	"github.com/cyberinferno/chansock/logger"
	"github.com/cyberinferno/chansock/safemap"
	"github.com/cyberinferno/chansock/session"
)

// Server accepts WebSocket connections, admits at most one live session
// per ClientId, and exposes everything the application needs on a single
// drained event queue.
type Server struct {
	auth        envelope.Authenticator
	acceptorCfg AcceptorConfig
	cfg         ServerConfig
	log         logger.Logger

	upgrader    websocket.Upgrader
	sessions    *safemap.SafeMap[idgen.ClientId, *session.Session]
	heartbeats  *safemap.SafeMap[idgen.ClientId, *heartbeat]
	sessionIds  *idgen.Sequence
	connCounter *ConnectionCounter
	authGroup   singleflight.Group

	events *eventqueue.Queue[Report]

	httpServer *http.Server
	listener   net.Listener
	addr       string

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New constructs a Server. The authenticator and acceptor/server configs
// are fixed for the server's lifetime; call ListenAndServe to start
// accepting connections.
func New(auth envelope.Authenticator, acceptorCfg AcceptorConfig, cfg ServerConfig, log logger.Logger) (*Server, error) {
	if err := acceptorCfg.Validate(); err != nil {
		return nil, fmt.Errorf("server: invalid acceptor config: %w", err)
	}

	s := &Server{
		auth:        auth,
		acceptorCfg: acceptorCfg,
		cfg:         cfg,
		log:         log,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		sessions:    safemap.NewSafeMap[idgen.ClientId, *session.Session](),
		heartbeats:  safemap.NewSafeMap[idgen.ClientId, *heartbeat](),
		sessionIds:  idgen.NewSequence(0),
		connCounter: NewConnectionCounter(cfg.MaxConnections),
		events:      eventqueue.New[Report](),
	}
	return s, nil
}

// ListenAndServe binds addr and serves the WebSocket upgrade endpoint at
// /ws plus a plain /healthz route, following the pack's router-plus-
// WS-route convention. It blocks until Shutdown is called or the listener
// fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	if s.acceptorCfg.Kind == AcceptorTLS {
		ln = newTLSListener(ln, s.acceptorCfg.TLS)
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleUpgrade)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{Handler: router}
	s.log.Info("server: listening", logger.Field{Key: "addr", Value: s.addr})

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// URL returns the base ws:// URL the server is listening on, valid once
// ListenAndServe has bound its listener.
func (s *Server) URL() string {
	return "ws://" + s.addr + "/ws"
}

// NumConnections returns the number of currently live sessions.
func (s *Server) NumConnections() int {
	return s.sessions.Len()
}

// Next drains the next buffered Report, or reports false if none is
// queued. It never blocks.
func (s *Server) Next() (Report, bool) {
	return s.events.Next()
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	if !s.connCounter.TryAcquire() {
		http.Error(w, ErrMaxConnections.Error(), http.StatusServiceUnavailable)
		return
	}

	admitted := false
	defer func() {
		if !admitted {
			s.connCounter.Release()
		}
	}()

	hs, err := envelope.DecodeQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if hs.Version != envelope.ProtocolVersion {
		s.log.Warn("server: handshake version mismatch", logger.Field{Key: "got", Value: hs.Version})
		http.Error(w, ErrVersionMismatch.Error(), http.StatusBadRequest)
		return
	}

	// Two concurrent handshakes asserting the same ClientId collapse onto
	// one authentication attempt: the verifier (potentially a network call
	// for AuthKindToken) runs once and its result is shared, rather than
	// every racing caller re-running it. Duplicate-ClientId admission
	// itself is decided afterward, per caller, by the registry's own
	// LoadOrStore — sharing that result across callers would wrongly tell
	// the loser it was admitted.
	_, err, _ = s.authGroup.Do(hs.ClientId.String(), func() (interface{}, error) {
		return nil, s.auth.Authenticate(hs.ClientId, hs.Auth)
	})
	if err != nil {
		s.log.Warn("server: handshake authentication failed", logger.Field{Key: "client_id", Value: hs.ClientId.String()})
		http.Error(w, envelope.ErrAuthFailed.Error(), http.StatusUnauthorized)
		return
	}

	if _, loaded := s.sessions.LoadOrStore(hs.ClientId, nil); loaded {
		s.log.Warn("server: duplicate client id rejected", logger.Field{Key: "client_id", Value: hs.ClientId.String()})
		http.Error(w, ErrDuplicateClientId.Error(), http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.sessions.Delete(hs.ClientId)
		s.log.Warn("server: websocket upgrade failed", logger.Field{Key: "error", Value: err})
		return
	}

	sess := session.New(session.Config{
		Id:         s.sessionIds.Next(),
		ClientId:   hs.ClientId,
		Role:       session.RoleServer,
		Env:        hs.Env,
		ConnectMsg: hs.ConnectMsg,
		Conn:       conn,
		MaxMsgSize: s.cfg.MaxMsgSize,
		Dispatcher: s,
		Logger:     s.log,
	})
	s.sessions.Store(hs.ClientId, sess)
	admitted = true

	if s.cfg.HeartbeatInterval > 0 {
		hb := newHeartbeat(conn, s.cfg.HeartbeatInterval, maxMissedHeartbeats(s.cfg.HeartbeatInterval, s.cfg.KeepaliveTimeout), func() {
			sess.Close()
		})
		s.heartbeats.Store(hs.ClientId, hb)
		go hb.run()
	}

	s.events.Push(Report{
		Kind:       ReportConnected,
		ClientId:   hs.ClientId,
		EnvType:    hs.Env,
		ConnectMsg: hs.ConnectMsg,
	})
}

// Send queues a fire-and-forget message to clientId's session.
func (s *Server) Send(clientId idgen.ClientId, payload []byte) error {
	sess, ok := s.sessions.Load(clientId)
	if !ok || sess == nil {
		return ErrUnknownClient
	}
	_, err := sess.Send(payload)
	return err
}

// Respond answers a pending request via its token.
func (s *Server) Respond(token *RequestToken, payload []byte) error {
	return token.Respond(payload)
}

// Ack acknowledges a pending request via its token.
func (s *Server) Ack(token *RequestToken) error {
	return token.Ack()
}

// Reject refuses a pending request via its token.
func (s *Server) Reject(token *RequestToken) error {
	return token.Reject()
}

// Disconnect forcibly closes clientId's session, if any.
func (s *Server) Disconnect(clientId idgen.ClientId) error {
	sess, ok := s.sessions.Load(clientId)
	if !ok || sess == nil {
		return ErrUnknownClient
	}
	sess.Close()
	return nil
}

// Shutdown transitions every live session through Closing, stops accepting
// new connections, and closes the event queue: events already buffered stay
// available to Next, and events produced afterwards are dropped.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.sessions.Range(func(_ idgen.ClientId, sess *session.Session) bool {
		if sess != nil {
			sess.Close()
		}
		return true
	})

	s.events.Close()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// --- session.Dispatcher implementation -------------------------------------

func (s *Server) DeliverMsg(sess *session.Session, payload []byte) {
	s.events.Push(Report{Kind: ReportMsg, ClientId: sess.ClientId(), Payload: payload})
}

func (s *Server) DeliverRequest(sess *session.Session, requestId uint64, payload []byte) {
	token := newRequestToken(sess, requestId)
	s.events.Push(Report{Kind: ReportRequest, ClientId: sess.ClientId(), Payload: payload, Token: token})
}

// DeliverResponse/DeliverAck/DeliverReject can never fire on a RoleServer
// session: session.handleInbound rejects those kinds as a protocol
// violation before the dispatcher is ever consulted. Implemented to
// satisfy the Dispatcher interface.
func (s *Server) DeliverResponse(sess *session.Session, requestId uint64, payload []byte) {}
func (s *Server) DeliverAck(sess *session.Session, requestId uint64)                       {}
func (s *Server) DeliverReject(sess *session.Session, requestId uint64)                    {}

func (s *Server) DeliverProtocolError(sess *session.Session, err error) {
	s.log.Warn("server: protocol error", logger.Field{Key: "client_id", Value: sess.ClientId().String()}, logger.Field{Key: "error", Value: err})
}

func (s *Server) DeliverDisconnect(sess *session.Session, cause error) {
	s.sessions.Delete(sess.ClientId())
	if hb, ok := s.heartbeats.Load(sess.ClientId()); ok {
		hb.Close()
		s.heartbeats.Delete(sess.ClientId())
	}
	s.connCounter.Release()
	s.events.Push(Report{Kind: ReportDisconnected, ClientId: sess.ClientId()})
}
