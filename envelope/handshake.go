package envelope

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/cyberinferno/chansock/idgen"
)

// EnvType distinguishes the client's runtime environment. This port targets
// native builds only (see the browser/WASM decision recorded alongside the
// rest of this package's design), but the field is carried end to end
// since downstream consumers branch on client capability by EnvType.
type EnvType byte

const (
	EnvNative EnvType = iota
	EnvBrowser
)

func (e EnvType) String() string {
	if e == EnvBrowser {
		return "Browser"
	}
	return "Native"
}

// ProtocolVersion is the version string every handshake asserts. A client
// and server built against different versions of this package fail the
// handshake before authentication ever runs.
const ProtocolVersion = "1"

// ErrVersionMismatch is returned when the client's protocol version string
// does not match the server's. Checked before authentication runs.
var ErrVersionMismatch = errors.New("envelope: protocol version mismatch")

// ErrAuthFailed is returned when the Authenticator rejects the handshake.
var ErrAuthFailed = errors.New("envelope: authentication failed")

// Handshake carries the fields asserted by the client during the HTTP
// upgrade, placed as URL query parameters (see the open-question decision
// recorded for this placement).
type Handshake struct {
	Version    string
	ClientId   idgen.ClientId
	Env        EnvType
	ConnectMsg []byte
	Auth       AuthRequest
}

// AuthKind discriminates the AuthRequest/Authenticator variants.
type AuthKind byte

const (
	AuthKindNone AuthKind = iota
	AuthKindSecret
	AuthKindToken
)

// AuthRequest is the credential the client attaches to a handshake. Exactly
// one of Token/SignedToken is meaningful, selected by Kind.
type AuthRequest struct {
	Kind        AuthKind
	Token       string // meaningful when Kind == AuthKindSecret
	SignedToken string // meaningful when Kind == AuthKindToken
}

// TokenVerifier validates a signed credential presented by AuthKindToken
// requests. Implementations are supplied by the caller; chansock does not
// mandate a signature scheme.
type TokenVerifier func(clientId idgen.ClientId, signedToken string) error

// Authenticator decides whether a handshake's AuthRequest is acceptable.
// The three variants mirror AuthRequest's Kind.
type Authenticator struct {
	kind     AuthKind
	expected string
	verify   TokenVerifier
}

// NoAuth accepts any handshake regardless of credential.
func NoAuth() Authenticator {
	return Authenticator{kind: AuthKindNone}
}

// SecretAuth accepts a handshake whose AuthRequest.Token constant-time
// compares equal to expected. Ported from the constant-time comparison
// idiom used for shared-secret validation elsewhere in the pack.
func SecretAuth(expected string) Authenticator {
	return Authenticator{kind: AuthKindSecret, expected: expected}
}

// TokenAuth accepts a handshake whose AuthRequest.SignedToken passes verify.
func TokenAuth(verify TokenVerifier) Authenticator {
	return Authenticator{kind: AuthKindToken, verify: verify}
}

// Authenticate validates req against the configured policy. It returns
// ErrAuthFailed (wrapped with more detail where available) on rejection.
func (a Authenticator) Authenticate(clientId idgen.ClientId, req AuthRequest) error {
	switch a.kind {
	case AuthKindNone:
		return nil
	case AuthKindSecret:
		if req.Kind != AuthKindSecret {
			return ErrAuthFailed
		}
		if a.expected == "" {
			return ErrAuthFailed
		}
		if subtle.ConstantTimeCompare([]byte(a.expected), []byte(req.Token)) != 1 {
			return ErrAuthFailed
		}
		return nil
	case AuthKindToken:
		if req.Kind != AuthKindToken {
			return ErrAuthFailed
		}
		if a.verify == nil {
			return ErrAuthFailed
		}
		if err := a.verify(clientId, req.SignedToken); err != nil {
			if errors.Is(err, ErrAuthFailed) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return nil
	default:
		return ErrAuthFailed
	}
}
