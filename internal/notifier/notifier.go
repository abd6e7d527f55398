// Package notifier fans notifications out to local observers: UI
// surfaces, other browser contexts, anything subscribed to the local
// event feed.
package notifier

import (
	"sync"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRoomStatus       Kind = "room_status"
	KindConnectivity     Kind = "connectivity"
	KindApplySync        Kind = "apply_sync"
	KindNavigate         Kind = "navigate"
	KindUserNotice       Kind = "user_notice"
	KindPermanentFailure Kind = "permanent_failure"
)

type Notification struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload,omitempty"`
}

// Notifier is a broadcast hub. Slow subscribers lose notifications
// rather than blocking the publisher.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string]chan Notification
}

func New() *Notifier {
	return &Notifier{subs: make(map[string]chan Notification)}
}

// Subscribe returns a receive channel and an unsubscribe handle.
func (n *Notifier) Subscribe() (<-chan Notification, func()) {
	id := uuid.NewString()
	ch := make(chan Notification, 16)

	n.mu.Lock()
	n.subs[id] = ch
	n.mu.Unlock()

	unsubscribe := func() {
		n.mu.Lock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
		n.mu.Unlock()
	}

	return ch, unsubscribe
}

func (n *Notifier) Publish(notification Notification) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subs {
		select {
		case ch <- notification:
		default:
		}
	}
}

func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
