package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_roundtrip(t *testing.T) {
	cases := []Envelope{
		Msg([]byte("hello")),
		Msg(nil),
		Request(7, []byte("payload")),
		Response(7, []byte("answer")),
		Ack(7),
		Reject(7),
	}

	for _, original := range cases {
		frame, err := Encode(original)
		require.NoError(t, err)

		decoded, err := Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, original.Kind, decoded.Kind)
		assert.Equal(t, original.RequestId, decoded.RequestId)
		assert.Equal(t, original.Payload, decoded.Payload)
	}
}

func TestDecode_unknownKind(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecode_emptyFrame(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_truncatedRequestId(t *testing.T) {
	frame, err := Encode(Ack(42))
	require.NoError(t, err)

	_, err = Decode(frame[:3])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_truncatedPayloadLength(t *testing.T) {
	frame, err := Encode(Msg([]byte("hi")))
	require.NoError(t, err)

	_, err = Decode(frame[:2])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_truncatedPayloadBody(t *testing.T) {
	frame, err := Encode(Msg([]byte("hello world")))
	require.NoError(t, err)

	_, err = Decode(frame[:len(frame)-3])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestEncode_unknownKindRejected(t *testing.T) {
	_, err := Encode(Envelope{Kind: Kind(99)})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Msg", KindMsg.String())
	assert.Equal(t, "Request", KindRequest.String())
	assert.Equal(t, "Response", KindResponse.String())
	assert.Equal(t, "Ack", KindAck.String())
	assert.Equal(t, "Reject", KindReject.String())
	assert.Equal(t, "Unknown", Kind(0).String())
}
