package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientId(t *testing.T) {
	t.Run("generates non-zero id", func(t *testing.T) {
		id, err := NewClientId()
		require.NoError(t, err)
		assert.False(t, id.IsZero())
	})

	t.Run("successive calls produce different ids", func(t *testing.T) {
		a, err := NewClientId()
		require.NoError(t, err)
		b, err := NewClientId()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestClientId_String_roundtrip(t *testing.T) {
	id, err := NewClientId()
	require.NoError(t, err)

	s := id.String()
	assert.Len(t, s, 32)

	parsed, err := ParseClientId(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseClientId_errors(t *testing.T) {
	t.Run("rejects non-hex input", func(t *testing.T) {
		_, err := ParseClientId("not-hex-at-all!!")
		assert.Error(t, err)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseClientId("ab")
		assert.Error(t, err)
	})
}

func TestClientId_IsZero(t *testing.T) {
	var zero ClientId
	assert.True(t, zero.IsZero())

	id, err := NewClientId()
	require.NoError(t, err)
	assert.False(t, id.IsZero())
}
