package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ClientId is the opaque 128-bit identity a client chooses for itself and
// asserts on every handshake. It is stable across reconnects of the same
// client.
type ClientId [16]byte

// String renders the ClientId as lowercase hex, e.g. for logging.
func (c ClientId) String() string {
	return hex.EncodeToString(c[:])
}

// IsZero reports whether c is the zero ClientId.
func (c ClientId) IsZero() bool {
	return c == ClientId{}
}

// NewClientId generates a random 128-bit ClientId.
//
// Returns:
//   - A new random ClientId
//   - An error if the system random source fails
func NewClientId() (ClientId, error) {
	var id ClientId
	if _, err := rand.Read(id[:]); err != nil {
		return ClientId{}, fmt.Errorf("idgen: failed generating client id: %w", err)
	}
	return id, nil
}

// ParseClientId decodes a hex-encoded ClientId, as produced by String.
//
// Parameters:
//   - s: The hex string to decode, must be exactly 32 hex characters
//
// Returns:
//   - The decoded ClientId
//   - An error if s is not valid hex or not the correct length
func ParseClientId(s string) (ClientId, error) {
	var id ClientId
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return ClientId{}, fmt.Errorf("idgen: invalid client id %q: %w", s, err)
	}
	if len(decoded) != len(id) {
		return ClientId{}, fmt.Errorf("idgen: invalid client id length %q: want %d bytes, got %d", s, len(id), len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}
