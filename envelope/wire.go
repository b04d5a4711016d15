package envelope

import (
	"encoding/binary"
	"fmt"

	"github.com/cyberinferno/chansock/utils"
)

// requestIdLen and lengthPrefixLen are the fixed-width binary fields that
// precede a variable-length payload, mirroring the length-prefixed field
// style of utils.JoinBytes callers elsewhere in the pack.
const (
	requestIdLen    = 8
	lengthPrefixLen = 4
)

// Encode serializes e into a single binary frame: one kind byte, followed
// by an 8-byte big-endian RequestId for kinds that carry one, followed by
// a 4-byte big-endian length prefix and the payload bytes for kinds that
// carry one. The result is always carried in exactly one WebSocket binary
// frame; Encode never spans frames.
func Encode(e Envelope) ([]byte, error) {
	kindByte := []byte{byte(e.Kind)}

	switch e.Kind {
	case KindMsg:
		return utils.JoinBytes(kindByte, encodeLengthPrefixed(e.Payload)), nil
	case KindRequest, KindResponse:
		return utils.JoinBytes(kindByte, encodeUint64(e.RequestId), encodeLengthPrefixed(e.Payload)), nil
	case KindAck, KindReject:
		return utils.JoinBytes(kindByte, encodeUint64(e.RequestId)), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, e.Kind)
	}
}

// Decode parses a single wire frame produced by Encode. It returns
// ErrUnknownKind if the leading byte does not match a known Kind, and
// ErrTruncated if the buffer ends before a declared field can be read.
func Decode(frame []byte) (Envelope, error) {
	if len(frame) < 1 {
		return Envelope{}, ErrTruncated
	}

	kind := Kind(frame[0])
	rest := frame[1:]

	switch kind {
	case KindMsg:
		payload, _, err := decodeLengthPrefixed(rest)
		if err != nil {
			return Envelope{}, err
		}
		return Msg(payload), nil
	case KindRequest, KindResponse:
		requestId, rest, err := decodeUint64(rest)
		if err != nil {
			return Envelope{}, err
		}
		payload, _, err := decodeLengthPrefixed(rest)
		if err != nil {
			return Envelope{}, err
		}
		if kind == KindRequest {
			return Request(requestId, payload), nil
		}
		return Response(requestId, payload), nil
	case KindAck, KindReject:
		requestId, _, err := decodeUint64(rest)
		if err != nil {
			return Envelope{}, err
		}
		if kind == KindAck {
			return Ack(requestId), nil
		}
		return Reject(requestId), nil
	default:
		return Envelope{}, fmt.Errorf("%w: %d", ErrUnknownKind, frame[0])
	}
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, requestIdLen)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < requestIdLen {
		return 0, nil, ErrTruncated
	}
	return binary.BigEndian.Uint64(buf[:requestIdLen]), buf[requestIdLen:], nil
}

func encodeLengthPrefixed(payload []byte) []byte {
	prefix := make([]byte, lengthPrefixLen)
	binary.BigEndian.PutUint32(prefix, uint32(len(payload)))
	return utils.JoinBytes(prefix, payload)
}

func decodeLengthPrefixed(buf []byte) ([]byte, []byte, error) {
	if len(buf) < lengthPrefixLen {
		return nil, nil, ErrTruncated
	}
	n := binary.BigEndian.Uint32(buf[:lengthPrefixLen])
	buf = buf[lengthPrefixLen:]
	if uint32(len(buf)) < n {
		return nil, nil, ErrTruncated
	}
	if n == 0 {
		return nil, buf, nil
	}
	return buf[:n], buf[n:], nil
}
