package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainData(q *messageQueue) []string {
	entries := q.Drain()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e.data)
	}

	return out
}

func TestQueueFIFO(t *testing.T) {
	q := newMessageQueue(4)

	assert.False(t, q.Push("", []byte("a")))
	assert.False(t, q.Push("", []byte("b")))
	assert.False(t, q.Push("", []byte("c")))

	assert.Equal(t, []string{"a", "b", "c"}, drainData(q))
	assert.Zero(t, q.Len())
}

func TestQueueDropsOldestOnOverflow(t *testing.T) {
	q := newMessageQueue(2)

	assert.False(t, q.Push("", []byte("a")))
	assert.False(t, q.Push("", []byte("b")))
	assert.True(t, q.Push("", []byte("c")), "overflow must report the drop")

	assert.Equal(t, []string{"b", "c"}, drainData(q))
}

func TestQueueDedupKeepsNewestAtTail(t *testing.T) {
	q := newMessageQueue(8)

	q.Push("sync/R1", []byte("sync-old"))
	q.Push("", []byte("join"))
	q.Push("sync/R1", []byte("sync-new"))

	assert.Equal(t, []string{"join", "sync-new"}, drainData(q))
}

func TestQueueDistinctKeysDoNotCollapse(t *testing.T) {
	q := newMessageQueue(8)

	q.Push("sync/R1", []byte("r1"))
	q.Push("sync/R2", []byte("r2"))

	assert.Equal(t, 2, q.Len())
}

func TestQueueRequeueFrontPreservesOrder(t *testing.T) {
	q := newMessageQueue(8)

	q.Push("", []byte("a"))
	q.Push("", []byte("b"))
	q.Push("", []byte("c"))

	drained := q.Drain()
	require.Len(t, drained, 3)

	// One frame made it out, something new arrived, then the flush
	// died: the unflushed tail goes back ahead of the newcomer.
	q.Push("", []byte("d"))
	q.RequeueFront(drained[1:])

	assert.Equal(t, []string{"b", "c", "d"}, drainData(q))
}

func TestQueueRequeueFrontOverflowDropsOldest(t *testing.T) {
	q := newMessageQueue(2)

	q.Push("", []byte("a"))
	q.Push("", []byte("b"))
	drained := q.Drain()

	q.Push("", []byte("c"))
	q.RequeueFront(drained)

	assert.Equal(t, []string{"b", "c"}, drainData(q))
}
