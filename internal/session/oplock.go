package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type OpKind int

const (
	OpCreate OpKind = iota
	OpJoin
	OpLeave
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpJoin:
		return "join"
	case OpLeave:
		return "leave"
	default:
		return "unknown"
	}
}

type PendingOperation struct {
	Kind     OpKind
	RoomID   string
	IssuedAt time.Time
}

// OperationLock serializes room-lifecycle operations. Callers that
// cannot acquire it are rejected, never queued. A lock older than the
// staleness window is silently replaced so a lost relay reply cannot
// deadlock the client forever. If two callers replace the same stale
// lock near-simultaneously the last writer wins; that narrow race is
// accepted.
type OperationLock struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	staleness time.Duration

	held bool
	op   PendingOperation
}

func NewOperationLock(staleness time.Duration, clock clockwork.Clock) *OperationLock {
	return &OperationLock{
		clock:     clock,
		staleness: staleness,
	}
}

// TryAcquire installs the lock if it is free or stale. Returns false
// while a fresh lock is held.
func (l *OperationLock) TryAcquire(kind OpKind, roomID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held && l.clock.Since(l.op.IssuedAt) < l.staleness {
		return false
	}

	l.held = true
	l.op = PendingOperation{
		Kind:     kind,
		RoomID:   roomID,
		IssuedAt: l.clock.Now(),
	}

	return true
}

// Release clears the lock unconditionally. Idempotent.
func (l *OperationLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.op = PendingOperation{}
}

// Current returns the pending operation while one is held and fresh.
func (l *OperationLock) Current() (PendingOperation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held || l.clock.Since(l.op.IssuedAt) >= l.staleness {
		return PendingOperation{}, false
	}

	return l.op, true
}
