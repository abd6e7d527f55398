package relay

// messageQueue holds outbound frames while the channel is down.
// FIFO, bounded, oldest dropped on overflow. Entries with the same
// dedup key supersede each other: the stale frame is removed and the
// new one appended.
type messageQueue struct {
	capacity int
	entries  []queuedMessage
}

type queuedMessage struct {
	key  string
	data []byte
}

func newMessageQueue(capacity int) *messageQueue {
	return &messageQueue{capacity: capacity}
}

// Push enqueues a frame and reports whether an older entry was
// dropped to stay within capacity.
func (q *messageQueue) Push(key string, data []byte) bool {
	if key != "" {
		for i, e := range q.entries {
			if e.key == key {
				q.entries = append(q.entries[:i], q.entries[i+1:]...)
				break
			}
		}
	}

	q.entries = append(q.entries, queuedMessage{key: key, data: data})

	if len(q.entries) > q.capacity {
		q.entries = q.entries[1:]
		return true
	}

	return false
}

// Drain returns all pending entries in order and empties the queue.
// Entries keep their dedup keys so an interrupted flush can put them
// back.
func (q *messageQueue) Drain() []queuedMessage {
	out := q.entries
	q.entries = nil

	return out
}

// RequeueFront puts drained entries back at the head of the queue,
// ahead of anything enqueued since the drain, preserving FIFO order.
// Overflow still drops from the front, oldest first.
func (q *messageQueue) RequeueFront(entries []queuedMessage) {
	if len(entries) == 0 {
		return
	}

	q.entries = append(entries[:len(entries):len(entries)], q.entries...)
	if excess := len(q.entries) - q.capacity; excess > 0 {
		q.entries = q.entries[excess:]
	}
}

func (q *messageQueue) Len() int {
	return len(q.entries)
}
