package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSequence(t *testing.T) {
	t.Run("returns non-nil sequence", func(t *testing.T) {
		seq := NewSequence(0)
		require.NotNil(t, seq)
	})

	t.Run("first Next returns startValue+1 when startValue is 0", func(t *testing.T) {
		seq := NewSequence(0)
		assert.Equal(t, uint64(1), seq.Next())
	})

	t.Run("first Next returns startValue+1 when startValue is non-zero", func(t *testing.T) {
		seq := NewSequence(100)
		assert.Equal(t, uint64(101), seq.Next())
	})
}

func TestSequence_Next_sequential(t *testing.T) {
	t.Run("values are monotonic starting from 1", func(t *testing.T) {
		seq := NewSequence(0)
		for want := uint64(1); want <= 10; want++ {
			assert.Equal(t, want, seq.Next())
		}
	})

	t.Run("no duplicate values in sequence", func(t *testing.T) {
		seq := NewSequence(0)
		seen := make(map[uint64]bool)
		for i := 0; i < 100; i++ {
			v := seq.Next()
			assert.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
	})
}

func TestSequence_Next_concurrent(t *testing.T) {
	t.Run("concurrent Next calls produce unique values", func(t *testing.T) {
		seq := NewSequence(0)
		const n = 500
		values := make([]uint64, n)
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(idx int) {
				defer wg.Done()
				values[idx] = seq.Next()
			}(i)
		}
		wg.Wait()

		seen := make(map[uint64]bool)
		for _, v := range values {
			assert.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
		assert.Len(t, seen, n)
	})
}

func TestSequence_multiple_independent(t *testing.T) {
	seq1 := NewSequence(0)
	seq2 := NewSequence(0)

	assert.Equal(t, uint64(1), seq1.Next())
	assert.Equal(t, uint64(1), seq2.Next())
	assert.Equal(t, uint64(2), seq1.Next())
	assert.Equal(t, uint64(2), seq2.Next())
}
