// Package client implements the reconnecting WebSocket connector side of a
// chansock deployment: it dials the server, carries the handshake as the
// upgrade request's query parameters, and keeps one client identity and
// event queue across reconnect attempts, replacing the session on each
// reconnect, so the caller sees a single logical connection.
package client

import (
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cyberinferno/chansock/envelope"
	"github.com/cyberinferno/chansock/eventqueue"
	"github.com/cyberinferno/chansock/idgen"
	"github.com/cyberinferno/chansock/logger"
	"github.com/cyberinferno/chansock/session"
	"github.com/cyberinferno/chansock/signal"
)

// Client is a reconnecting WebSocket connector. One Client owns a single
// persistent ClientId and, at any instant, at most one live session.Session;
// across a reconnect, the old session's in-flight signals are finalized to
// a terminal failure state before the new session's Connected report is
// enqueued.
type Client struct {
	baseURL    string
	authReq    envelope.AuthRequest
	cfg        ClientConfig
	connectMsg []byte
	clientId   idgen.ClientId
	log        logger.Logger

	sessionIds *idgen.Sequence
	requestIds *idgen.Sequence

	mu    sync.RWMutex
	state ConnectionState
	sess  *session.Session
	hb    *heartbeat

	dead       bool
	deadReason error

	events *eventqueue.Queue[Report]

	disconnected chan error
	stopChan     chan struct{}
	closeOnce    sync.Once
	finalizeOnce sync.Once
	wg           sync.WaitGroup

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New constructs a Client and immediately begins connecting in the
// background. The caller drains Next for lifecycle and message events and
// uses Send/Request for outbound traffic.
func New(rawURL string, authReq envelope.AuthRequest, cfg ClientConfig, connectMsg []byte, log logger.Logger) (*Client, error) {
	clientId, err := idgen.NewClientId()
	if err != nil {
		return nil, fmt.Errorf("client: generating client id: %w", err)
	}

	c := &Client{
		baseURL:      rawURL,
		authReq:      authReq,
		cfg:          cfg,
		connectMsg:   connectMsg,
		clientId:     clientId,
		log:          log,
		sessionIds:   idgen.NewSequence(0),
		requestIds:   idgen.NewSequence(0),
		events:       eventqueue.New[Report](),
		disconnected: make(chan error, 1),
		stopChan:     make(chan struct{}),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	c.wg.Add(1)
	go c.run()
	return c, nil
}

// ClientId returns this client's persistent identity.
func (c *Client) ClientId() idgen.ClientId { return c.clientId }

// State returns the client's current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsDead reports whether the client has permanently stopped, and if so,
// the reason. ok is false while the client is still connecting,
// connected, or reconnecting.
func (c *Client) IsDead() (reason error, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deadReason, c.dead
}

// Next drains the next buffered Report, or reports false if none is
// queued. It never blocks.
func (c *Client) Next() (Report, bool) {
	return c.events.Next()
}

// Send queues a fire-and-forget message on the current session.
func (c *Client) Send(payload []byte) (*signal.Message, error) {
	sess, err := c.liveSession()
	if err != nil {
		sig := signal.NewMessage()
		sig.Set(signal.MessageFailed)
		return sig, err
	}
	return sess.Send(payload)
}

// Request queues a client request on the current session. The request id
// is minted here, from a sequence that outlives any single session, so ids
// stay unique for the client's whole lifetime across reconnects rather than
// resetting with each new session.
func (c *Client) Request(payload []byte) (*signal.Request, error) {
	sess, err := c.liveSession()
	if err != nil {
		sig := signal.NewRequest()
		sig.Set(signal.RequestSendFailed)
		return sig, err
	}
	return sess.Request(c.requestIds.Next(), payload)
}

func (c *Client) liveSession() (*session.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dead {
		return nil, ErrClientClosed
	}
	if c.sess == nil || c.state != Connected {
		return nil, fmt.Errorf("client: not connected")
	}
	return c.sess, nil
}

// Close idempotently tears down the client: a ReportClosedBySelf is
// enqueued synchronously, ahead of anything teardown itself produces, then
// the current session (if any) is closed and no reconnect is attempted.
// Exactly one ReportDead with ErrClosedBySelf follows once run observes the
// shutdown.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.events.Push(Report{Kind: ReportClosedBySelf})
		close(c.stopChan)
		c.mu.RLock()
		sess := c.sess
		c.mu.RUnlock()
		if sess != nil {
			sess.Close()
		}
	})
	c.wg.Wait()
}

// finalize is idempotent: whichever exit path from run reaches it first
// decides the recorded reason, and every later call is a no-op. This lets
// Close (via sess.Close's synchronous DeliverDisconnect) and run's own
// stop-detection race safely.
func (c *Client) finalize(reason error) {
	c.finalizeOnce.Do(func() {
		c.mu.Lock()
		c.dead = true
		c.deadReason = reason
		c.state = Closed
		c.mu.Unlock()
		c.events.Push(Report{Kind: ReportDead, Reason: reason})
		c.events.Close()
	})
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// run is the single supervising goroutine: it dials, waits for a
// disconnect, decides whether to reconnect, and otherwise finalizes.
// Generalizes the teacher's connect+reconnectHandler pair into one loop,
// since this port doesn't need the teacher's separate public
// Connect/Disconnect surface.
func (c *Client) run() {
	defer c.wg.Done()

	attempt := 0
	neverConnected := true

	for {
		select {
		case <-c.stopChan:
			c.finalize(ErrClosedBySelf)
			return
		default:
		}

		attempt++
		if err := c.dial(); err != nil {
			c.log.Warn("client: connect attempt failed", logger.Field{Key: "attempt", Value: attempt}, logger.Field{Key: "error", Value: err})
			if neverConnected && attempt >= c.cfg.MaxInitialConnectAttempts {
				c.finalize(ErrConnectFailed)
				return
			}
			if !c.waitBackoff(attempt) {
				c.finalize(ErrClosedBySelf)
				return
			}
			continue
		}

		neverConnected = false
		attempt = 0

		select {
		case <-c.stopChan:
			c.finalize(ErrClosedBySelf)
			return
		case cause := <-c.disconnected:
			if !c.shouldReconnect(cause) {
				c.finalize(c.disconnectReason(cause))
				return
			}
			c.setState(Reconnecting)
			c.events.Push(Report{Kind: ReportReconnecting, Reason: cause})
		}
	}
}

func (c *Client) waitBackoff(attempt int) bool {
	delay := c.nextBackoff(attempt)
	select {
	case <-c.stopChan:
		return false
	case <-time.After(delay):
		return true
	}
}

func (c *Client) nextBackoff(attempt int) time.Duration {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return nextBackoffDelay(backoffConfig{
		InitialDelay: c.cfg.ReconnectIntervalMin,
		MaxDelay:     c.cfg.ReconnectIntervalMax,
		Multiplier:   2.0,
		Jitter:       true,
	}, attempt, c.rng)
}

// shouldReconnect decides, from the cause recorded by DeliverDisconnect,
// whether the supervisor loop should dial again.
func (c *Client) shouldReconnect(cause error) bool {
	select {
	case <-c.stopChan:
		return false
	default:
	}
	if isGracefulServerClose(cause) {
		return c.cfg.ReconnectOnServerClose
	}
	return c.cfg.ReconnectOnDisconnect
}

func (c *Client) disconnectReason(cause error) error {
	if isGracefulServerClose(cause) {
		return ErrServerClosed
	}
	if cause == nil {
		return ErrClosedBySelf
	}
	return cause
}

func isGracefulServerClose(cause error) bool {
	var closeErr *websocket.CloseError
	return errors.As(cause, &closeErr) && closeErr.Code == websocket.CloseNormalClosure
}

func (c *Client) dial() error {
	c.setState(Connecting)

	fullURL, err := c.handshakeURL()
	if err != nil {
		c.setState(Disconnected)
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(fullURL, nil)
	if err != nil {
		c.setState(Disconnected)
		return err
	}

	sess := session.New(session.Config{
		Id:         c.sessionIds.Next(),
		ClientId:   c.clientId,
		Role:       session.RoleClient,
		Env:        envelope.EnvNative,
		ConnectMsg: c.connectMsg,
		Conn:       conn,
		MaxMsgSize: c.cfg.MaxMsgSize,
		Dispatcher: c,
		Logger:     c.log,
	})

	hb := newHeartbeat(conn, c.cfg.HeartbeatInterval, c.cfg.MaxMissedHeartbeats, func() {
		_ = conn.Close()
	})

	c.mu.Lock()
	c.sess = sess
	c.hb = hb
	c.state = Connected
	c.mu.Unlock()

	if c.cfg.HeartbeatInterval > 0 {
		go hb.run()
	}

	c.events.Push(Report{Kind: ReportConnected})
	return nil
}

func (c *Client) handshakeURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("client: invalid url: %w", err)
	}

	values, err := envelope.EncodeQuery(envelope.Handshake{
		Version:    envelope.ProtocolVersion,
		ClientId:   c.clientId,
		Env:        envelope.EnvNative,
		ConnectMsg: c.connectMsg,
		Auth:       c.authReq,
	})
	if err != nil {
		return "", err
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// --- session.Dispatcher implementation -------------------------------------

func (c *Client) DeliverMsg(sess *session.Session, payload []byte) {
	c.events.Push(Report{Kind: ReportMsg, Payload: payload})
}

// DeliverRequest can never fire on a RoleClient session; session rejects
// it as a protocol violation before the dispatcher is consulted.
func (c *Client) DeliverRequest(sess *session.Session, requestId uint64, payload []byte) {}

// DeliverResponse/DeliverAck/DeliverReject fire after the owning session
// has already advanced the Request signal itself; these push the matching
// report so an embedder can observe the event without separately polling
// the signal it was handed by Request.
func (c *Client) DeliverResponse(sess *session.Session, requestId uint64, payload []byte) {
	c.events.Push(Report{Kind: ReportResponse, RequestId: requestId, Payload: payload})
}

func (c *Client) DeliverAck(sess *session.Session, requestId uint64) {
	c.events.Push(Report{Kind: ReportAck, RequestId: requestId})
}

func (c *Client) DeliverReject(sess *session.Session, requestId uint64) {
	c.events.Push(Report{Kind: ReportReject, RequestId: requestId})
}

func (c *Client) DeliverProtocolError(sess *session.Session, err error) {
	c.log.Error("client: protocol error", logger.Field{Key: "error", Value: err})
}

func (c *Client) DeliverDisconnect(sess *session.Session, cause error) {
	c.mu.Lock()
	if c.hb != nil {
		c.hb.Close()
		c.hb = nil
	}
	c.sess = nil
	c.mu.Unlock()

	c.events.Push(Report{Kind: ReportDisconnected, Reason: cause})

	select {
	case c.disconnected <- cause:
	default:
	}
}
