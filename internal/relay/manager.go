// Package relay owns the duplex channel to the relay: dialing,
// heartbeats, reconnection with bounded exponential backoff, and the
// durable-message queue that bridges disconnects.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/coview/client/internal/metrics"
	"github.com/coview/client/internal/protocol"
	"github.com/coview/client/internal/session"
)

var ErrPermanentlyDisconnected = errors.New("relay permanently disconnected")

type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

type wsDialer struct {
	dialer *websocket.Dialer
}

func (d wsDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// NewDialer returns the production websocket dialer.
func NewDialer() Dialer {
	return wsDialer{dialer: websocket.DefaultDialer}
}

type Config struct {
	URL                  string
	ConnectTimeout       time.Duration
	HeartbeatInterval    time.Duration
	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	MaxReconnectAttempts int
	QueueCapacity        int
}

func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		ConnectTimeout:       10 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		ReconnectBase:        3 * time.Second,
		ReconnectCap:         30 * time.Second,
		MaxReconnectAttempts: 5,
		QueueCapacity:        64,
	}
}

// Event is a connectivity notification to observers.
type Event struct {
	State       session.ConnState
	Attempt     int
	Delay       time.Duration
	Reconnected bool
	Err         error
}

// Hooks are the manager's view of its owner. UserID feeds heartbeats,
// ActiveRoom decides whether a dropped socket is worth reconnecting,
// OnState receives connectivity transitions (including the open that
// follows a reconnect, after the queue has been flushed), OnMessage
// receives every inbound frame.
type Hooks struct {
	OnMessage  func(raw []byte)
	OnState    func(Event)
	UserID     func() string
	ActiveRoom func() string
}

type Manager struct {
	cfg     Config
	dialer  Dialer
	clock   clockwork.Clock
	logger  *slog.Logger
	hooks   Hooks
	metrics *metrics.Metrics

	mu                 sync.Mutex
	conn               Conn
	gen                uint64
	state              session.ConnState
	attempts           int
	userClosed         bool
	connecting         bool
	reconnectScheduled bool
	reconnectTimer     clockwork.Timer
	heartbeatStop      chan struct{}
	queue              *messageQueue
	lastConnectedAt    time.Time

	writeMu sync.Mutex
}

func NewManager(cfg Config, dialer Dialer, clock clockwork.Clock, mtr *metrics.Metrics, logger *slog.Logger, hooks Hooks) *Manager {
	return &Manager{
		cfg:     cfg,
		dialer:  dialer,
		clock:   clock,
		logger:  logger,
		hooks:   hooks,
		metrics: mtr,
		queue:   newMessageQueue(cfg.QueueCapacity),
	}
}

// Connect opens the channel if it is not already open or opening.
// No-op otherwise. The attempt itself runs in the background; failure
// is handled the same way a socket error is.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.conn != nil || m.connecting || m.userClosed {
		m.mu.Unlock()
		return
	}
	m.connecting = true
	m.state = session.ConnConnecting
	m.mu.Unlock()

	m.notify(Event{State: session.ConnConnecting})

	go m.dial()
}

func (m *Manager) dial() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := m.dialer.DialContext(ctx, m.cfg.URL)

	m.mu.Lock()
	m.connecting = false
	if m.userClosed {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("relay dial failed", "url", m.cfg.URL, "error", err)
		m.handleFailure(err)
		return
	}

	reconnected := m.attempts > 0
	m.conn = conn
	m.gen++
	gen := m.gen
	m.attempts = 0
	m.reconnectScheduled = false
	m.state = session.ConnConnected
	m.lastConnectedAt = m.clock.Now()
	pending := m.queue.Drain()
	stop := make(chan struct{})
	m.heartbeatStop = stop
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Connected.Set(1)
	}

	go m.readPump(conn, gen)
	go m.heartbeat(stop)

	// Flush in FIFO order before anything else goes out. A failed write
	// puts the unflushed tail back so the next open retries it; the
	// read pump notices the dead socket and starts that reconnect.
	for i, e := range pending {
		if err := m.writeFrame(conn, e.data); err != nil {
			m.logger.Warn("flush failed, re-queueing pending frames", "remaining", len(pending)-i, "error", err)
			m.mu.Lock()
			m.queue.RequeueFront(pending[i:])
			m.mu.Unlock()
			break
		}
	}

	m.notify(Event{State: session.ConnConnected, Reconnected: reconnected})
}

func (m *Manager) readPump(conn Conn, gen uint64) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.handleSocketError(gen, err)
			return
		}

		if m.hooks.OnMessage != nil {
			m.hooks.OnMessage(raw)
		}
	}
}

// handleSocketError tears down the current connection and decides
// whether to reconnect. Stale generations are ignored so a pump that
// lost the race cannot tear down its successor.
func (m *Manager) handleSocketError(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.conn == nil {
		m.mu.Unlock()
		return
	}

	m.conn.Close()
	m.conn = nil
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}

	userClosed := m.userClosed
	hasRoom := m.hooks.ActiveRoom != nil && m.hooks.ActiveRoom() != ""
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Connected.Set(0)
	}

	if userClosed || !hasRoom {
		m.mu.Lock()
		m.state = session.ConnDisconnected
		m.mu.Unlock()
		m.notify(Event{State: session.ConnDisconnected, Err: err})
		return
	}

	m.handleFailure(err)
}

// handleFailure schedules the next reconnect attempt with exponential
// backoff, or fails loud when the budget is exhausted. Callers must
// not assume eventual delivery past the permanent-failure
// notification.
func (m *Manager) handleFailure(err error) {
	m.mu.Lock()
	if m.userClosed {
		m.mu.Unlock()
		return
	}

	m.attempts++
	attempt := m.attempts

	if attempt > m.cfg.MaxReconnectAttempts {
		m.state = session.ConnFailed
		m.reconnectScheduled = false
		m.mu.Unlock()

		if m.metrics != nil {
			m.metrics.PermanentFailures.Inc()
		}
		m.logger.Error("relay reconnect attempts exhausted", "attempts", attempt-1, "error", err)
		m.notify(Event{State: session.ConnFailed, Err: ErrPermanentlyDisconnected})
		return
	}

	delay := m.backoffDelay(attempt)
	m.state = session.ConnReconnecting
	m.reconnectScheduled = true
	m.reconnectTimer = m.clock.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.userClosed || m.conn != nil || m.connecting {
			m.mu.Unlock()
			return
		}
		m.connecting = true
		m.mu.Unlock()

		m.dial()
	})
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ReconnectAttempts.Inc()
	}
	m.logger.Info("relay reconnect scheduled", "attempt", attempt, "delay", delay, "error", err)
	m.notify(Event{State: session.ConnReconnecting, Attempt: attempt, Delay: delay, Err: err})
}

func (m *Manager) backoffDelay(attempt int) time.Duration {
	delay := m.cfg.ReconnectBase << (attempt - 1)
	if delay > m.cfg.ReconnectCap {
		delay = m.cfg.ReconnectCap
	}

	return delay
}

// Send transmits immediately when the channel is open. When it is
// not, durable messages are queued for the next flush; if no
// reconnect is pending, a connect is initiated first.
func (m *Manager) Send(msg any) error {
	msgType := protocol.TypeOf(msg)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}

	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if conn != nil {
		if err := m.writeFrame(conn, data); err != nil {
			// The read pump will notice the dead socket and start the
			// reconnect; keep the message for the flush if durable.
			m.enqueue(msgType, msg, data)
			return fmt.Errorf("write %s: %w", msgType, err)
		}

		if m.metrics != nil {
			m.metrics.MessagesSent.WithLabelValues(string(msgType)).Inc()
		}
		return nil
	}

	if state == session.ConnFailed {
		return ErrPermanentlyDisconnected
	}

	if protocol.IsDurable(msgType) {
		m.enqueue(msgType, msg, data)
	}

	m.mu.Lock()
	scheduled := m.reconnectScheduled || m.connecting
	m.mu.Unlock()
	if !scheduled {
		m.Connect()
	}

	return nil
}

func (m *Manager) enqueue(msgType protocol.Type, msg any, data []byte) {
	if !protocol.IsDurable(msgType) {
		return
	}

	m.mu.Lock()
	dropped := m.queue.Push(protocol.DedupKey(msg), data)
	m.mu.Unlock()

	if dropped && m.metrics != nil {
		m.metrics.QueueDropped.Inc()
	}
	if dropped {
		m.logger.Warn("pending queue overflow, oldest dropped", "capacity", m.cfg.QueueCapacity)
	}
}

func (m *Manager) writeFrame(conn Conn, data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (m *Manager) heartbeat(stop chan struct{}) {
	ticker := m.clock.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			m.mu.Lock()
			conn := m.conn
			m.mu.Unlock()
			if conn == nil {
				return
			}

			hb := protocol.Heartbeat{Type: protocol.TypeHeartbeat, UserID: m.hooks.UserID()}
			data, _ := json.Marshal(hb)
			if err := m.writeFrame(conn, data); err != nil {
				m.logger.Warn("heartbeat failed", "error", err)
				return
			}
		}
	}
}

// Close shuts the channel down intentionally. No reconnect follows.
func (m *Manager) Close() {
	m.mu.Lock()
	m.userClosed = true
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.reconnectScheduled = false
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
	conn := m.conn
	m.conn = nil
	m.gen++
	m.state = session.ConnDisconnected
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if m.metrics != nil {
		m.metrics.Connected.Set(0)
	}
	m.notify(Event{State: session.ConnDisconnected})
}

func (m *Manager) State() session.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

func (m *Manager) notify(ev Event) {
	if m.hooks.OnState != nil {
		m.hooks.OnState(ev)
	}
}
