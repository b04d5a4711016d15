package eventqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	q := New[int]()
	require.NotNil(t, q)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Next_onEmptyReturnsFalse(t *testing.T) {
	q := New[string]()
	v, ok := q.Next()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestQueue_Push_Next_FIFO(t *testing.T) {
	q := New[int]()
	for i := 1; i <= 5; i++ {
		q.Push(i)
	}
	assert.Equal(t, 5, q.Len())

	for i := 1; i <= 5; i++ {
		v, ok := q.Next()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok := q.Next()
	assert.False(t, ok)
}

func TestQueue_Close_dropsFurtherPushes(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Close()
	q.Push(2)

	v, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = q.Next()
	assert.False(t, ok)
}

func TestQueue_Close_idempotent(t *testing.T) {
	q := New[int]()
	q.Close()
	q.Close()
	q.Push(1)
	_, ok := q.Next()
	assert.False(t, ok)
}

func TestQueue_Concurrent_manyProducersOneConsumer(t *testing.T) {
	q := New[int]()
	const producers = 20
	const perProducer = 100

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	count := 0
	for {
		v, ok := q.Next()
		if !ok {
			break
		}
		assert.False(t, seen[v], "duplicate delivery of %d", v)
		seen[v] = true
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}
