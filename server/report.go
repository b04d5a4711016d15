package server

import (
	"github.com/cyberinferno/chansock/envelope"
	"github.com/cyberinferno/chansock/idgen"
)

// ReportKind discriminates the events the server places on its event
// queue. Every Report is tagged with the ClientId of the session it
// originated from.
type ReportKind int

const (
	ReportConnected ReportKind = iota
	ReportDisconnected
	ReportMsg
	ReportRequest
)

// String renders the kind for logging.
func (k ReportKind) String() string {
	switch k {
	case ReportConnected:
		return "Connected"
	case ReportDisconnected:
		return "Disconnected"
	case ReportMsg:
		return "Msg"
	case ReportRequest:
		return "Request"
	default:
		return "Unknown"
	}
}

// Report is one event drained from the server's event queue via Next. Only
// the fields relevant to Kind are populated.
type Report struct {
	Kind       ReportKind
	ClientId   idgen.ClientId
	EnvType    envelope.EnvType
	ConnectMsg []byte
	Payload    []byte
	Token      *RequestToken
}
