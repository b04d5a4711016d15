package session

// Dispatcher receives the events a Session produces as it reads frames off
// its socket and as its lifecycle advances. client.Client and server.Server
// each implement Dispatcher so that a single Session implementation can
// serve both roles: the server tags deliveries with the session's
// ClientId before pushing them onto its event queue, the client does not.
type Dispatcher interface {
	// DeliverMsg is called for every received Msg envelope.
	DeliverMsg(s *Session, payload []byte)

	// DeliverRequest is called for every received Request envelope. Only
	// server-role sessions receive requests; a client-role session that
	// somehow reads one treats it as a protocol violation instead.
	DeliverRequest(s *Session, requestId uint64, payload []byte)

	// DeliverResponse is called when a pending request's Response arrives.
	// The Request signal created by Session.Request has already been
	// transitioned to Responded.
	DeliverResponse(s *Session, requestId uint64, payload []byte)

	// DeliverAck is called when a pending request is acknowledged.
	DeliverAck(s *Session, requestId uint64)

	// DeliverReject is called when a pending request is rejected, whether
	// explicitly or because the server dropped its RequestToken.
	DeliverReject(s *Session, requestId uint64)

	// DeliverProtocolError is called when the session must terminate due
	// to a malformed frame, an unknown discriminator, a duplicate or
	// unknown request id, or any other protocol-level violation.
	DeliverProtocolError(s *Session, err error)

	// DeliverDisconnect is called exactly once, after the session has
	// finished draining its outbound queue and pending requests, just
	// before it transitions to Dead. cause is nil when the session was
	// torn down by an explicit local Close; otherwise it is the error that
	// ended the connection: a read or write error (possibly a
	// *websocket.CloseError carrying the peer's close code), an oversized
	// frame, or a protocol violation.
	DeliverDisconnect(s *Session, cause error)
}
