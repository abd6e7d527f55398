// Package coordinator owns the session: it serializes room-lifecycle
// operations behind the operation lock, routes inbound relay messages
// into session mutations, and forwards playback corrections to the
// player adapter.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/coview/client/internal/metrics"
	"github.com/coview/client/internal/notifier"
	"github.com/coview/client/internal/playback"
	"github.com/coview/client/internal/player"
	"github.com/coview/client/internal/protocol"
	"github.com/coview/client/internal/relay"
	"github.com/coview/client/internal/repository/prefs"
	"github.com/coview/client/internal/session"
	"github.com/coview/client/pkg/validator"
	"github.com/coview/client/pkg/wsrouter"
)

var (
	ErrOperationInProgress = errors.New("operation in progress")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotInRoom           = errors.New("not in a room")
	ErrValidation          = errors.New("validation failed")
)

type Coordinator struct {
	relay    *relay.Manager
	sess     *session.Session
	lock     *session.OperationLock
	adapter  player.Adapter
	sync     *playback.Controller
	prefs    prefs.Repository
	notifier *notifier.Notifier
	validate *validator.Validator
	router   *wsrouter.Router
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	unsubPlayer func()

	// Successive connections run their pumps on different goroutines.
	adMu     sync.Mutex
	adActive bool
}

type Deps struct {
	RelayConfig relay.Config
	Dialer      relay.Dialer
	Session     *session.Session
	Lock        *session.OperationLock
	Adapter     player.Adapter
	Sync        *playback.Controller
	Prefs       prefs.Repository
	Notifier    *notifier.Notifier
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

func New(deps Deps) *Coordinator {
	c := &Coordinator{
		sess:     deps.Session,
		lock:     deps.Lock,
		adapter:  deps.Adapter,
		sync:     deps.Sync,
		prefs:    deps.Prefs,
		notifier: deps.Notifier,
		validate: validator.NewValidator(),
		clock:    deps.Clock,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}

	c.router = c.buildRouter()
	c.relay = relay.NewManager(deps.RelayConfig, deps.Dialer, deps.Clock, deps.Metrics, deps.Logger, relay.Hooks{
		OnMessage:  c.handleFrame,
		OnState:    c.handleConnState,
		UserID:     c.sess.UserID,
		ActiveRoom: c.sess.RoomID,
	})

	return c
}

// Start connects to the relay, subscribes to local player events, and
// offers a rejoin of the last room if it is still fresh.
func (c *Coordinator) Start(ctx context.Context) {
	c.unsubPlayer = c.adapter.OnEvent(c.handlePlayerEvent)
	c.relay.Connect()
	c.tryRejoinSaved(ctx)
}

func (c *Coordinator) Stop() {
	if c.unsubPlayer != nil {
		c.unsubPlayer()
	}
	c.sync.Stop()
	c.relay.Close()
}

func (c *Coordinator) Status() session.Status {
	return c.sess.Snapshot()
}

// CreateRoom asks the relay for a new room with this client as host.
func (c *Coordinator) CreateRoom(ctx context.Context, username string) error {
	if !c.lock.TryAcquire(session.OpCreate, "") {
		return fmt.Errorf("%w: %s pending", ErrOperationInProgress, c.pendingKind())
	}

	if username != "" {
		c.sess.SetUserName(username)
	}

	c.relay.Connect()

	return c.relay.Send(protocol.CreateRoom{
		Type:     protocol.TypeCreateRoom,
		UserID:   c.sess.UserID(),
		UserName: c.sess.UserName(),
	})
}

// JoinRoom joins an existing room by its code. Joining while already
// in a different room first leaves the old one; the lock covers both
// as a single logical operation.
func (c *Coordinator) JoinRoom(ctx context.Context, code string) error {
	roomID, err := protocol.NormalizeRoomCode(code)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if !c.lock.TryAcquire(session.OpJoin, roomID) {
		return fmt.Errorf("%w: %s pending", ErrOperationInProgress, c.pendingKind())
	}

	if current := c.sess.RoomID(); current != "" && current != roomID {
		if err := c.relay.Send(protocol.LeaveRoom{
			Type:   protocol.TypeLeaveRoom,
			RoomID: current,
			UserID: c.sess.UserID(),
		}); err != nil {
			c.logger.Warn("leave before join failed", "room_id", current, "error", err)
		}
		c.sess.ClearRoom()
	}

	c.relay.Connect()

	return c.relay.Send(protocol.JoinRoom{
		Type:     protocol.TypeJoinRoom,
		RoomID:   roomID,
		UserID:   c.sess.UserID(),
		UserName: c.sess.UserName(),
	})
}

func (c *Coordinator) LeaveRoom(ctx context.Context) error {
	roomID := c.sess.RoomID()
	if roomID == "" {
		return ErrNotInRoom
	}

	if !c.lock.TryAcquire(session.OpLeave, roomID) {
		return fmt.Errorf("%w: %s pending", ErrOperationInProgress, c.pendingKind())
	}

	if err := c.prefs.ClearSession(ctx); err != nil {
		c.logger.Warn("failed to clear saved session", "error", err)
	}

	return c.relay.Send(protocol.LeaveRoom{
		Type:   protocol.TypeLeaveRoom,
		RoomID: roomID,
		UserID: c.sess.UserID(),
	})
}

// KickUser removes another participant. Host only, checked locally
// without a relay round trip.
func (c *Coordinator) KickUser(ctx context.Context, targetUserID string) error {
	if !c.sess.InRoom() {
		return ErrNotInRoom
	}
	if !c.sess.IsHost() {
		return fmt.Errorf("%w: only the host can kick", ErrPermissionDenied)
	}

	return c.relay.Send(protocol.KickUser{
		Type:         protocol.TypeKickUser,
		RoomID:       c.sess.RoomID(),
		UserID:       c.sess.UserID(),
		TargetUserID: targetUserID,
	})
}

func (c *Coordinator) SetPermission(ctx context.Context, targetUserID string, canControl bool) error {
	if !c.sess.InRoom() {
		return ErrNotInRoom
	}
	if !c.sess.IsHost() {
		return fmt.Errorf("%w: only the host can change permissions", ErrPermissionDenied)
	}

	return c.relay.Send(protocol.SetPermission{
		Type:         protocol.TypeSetPermission,
		RoomID:       c.sess.RoomID(),
		UserID:       c.sess.UserID(),
		TargetUserID: targetUserID,
		CanControl:   canControl,
	})
}

func (c *Coordinator) SetName(ctx context.Context, name string) error {
	c.sess.SetUserName(name)
	c.saveSession(ctx)

	return c.relay.Send(protocol.SetName{
		Type:   protocol.TypeSetName,
		UserID: c.sess.UserID(),
		Name:   name,
	})
}

// Navigate tells the room to open the same media page.
func (c *Coordinator) Navigate(ctx context.Context, url, platform string) error {
	if !c.sess.InRoom() {
		return ErrNotInRoom
	}
	if !c.sess.CanControl() {
		return ErrPermissionDenied
	}

	nav := protocol.Navigation{
		URL:       url,
		Platform:  platform,
		Timestamp: c.clock.Now().UnixMilli(),
	}
	if errs, ok := c.validate.Validate(nav); !ok {
		return fmt.Errorf("%w: %s", ErrValidation, errs[0].Message)
	}

	return c.relay.Send(protocol.Navigate{
		Type:       protocol.TypeNavigate,
		RoomID:     c.sess.RoomID(),
		UserID:     c.sess.UserID(),
		Navigation: nav,
	})
}

// ReportAdStarted is called by external ad detection when the local
// player enters an ad break.
func (c *Coordinator) ReportAdStarted(ctx context.Context) error {
	return c.sendSyncEvent(protocol.PlaybackEvent{
		Type:      protocol.EventAdStarted,
		Timestamp: c.clock.Now().UnixMilli(),
	})
}

func (c *Coordinator) ReportAdEnded(ctx context.Context) error {
	return c.sendSyncEvent(protocol.PlaybackEvent{
		Type:      protocol.EventAdEnded,
		Timestamp: c.clock.Now().UnixMilli(),
	})
}

// handlePlayerEvent forwards locally originated playback events to the
// room. Remote-origin events were applied by us and must not loop
// back.
func (c *Coordinator) handlePlayerEvent(ev player.Event) {
	if ev.Origin != player.OriginLocal {
		return
	}
	if !c.sess.InRoom() {
		return
	}
	if !c.sess.CanControl() {
		c.logger.Debug("dropping local playback event, no control permission", "kind", ev.Kind)
		return
	}

	var eventType protocol.EventType
	switch ev.Kind {
	case player.EventPlay:
		eventType = protocol.EventPlay
	case player.EventPause:
		eventType = protocol.EventPause
	case player.EventSeek:
		eventType = protocol.EventSeek
	default:
		return
	}

	timestamp := ev.Timestamp
	if timestamp == 0 {
		timestamp = c.clock.Now().UnixMilli()
	}

	if err := c.sendSyncEvent(protocol.PlaybackEvent{
		Type:      eventType,
		Time:      ev.Time,
		Timestamp: timestamp,
	}); err != nil {
		c.logger.Warn("failed to send sync event", "kind", ev.Kind, "error", err)
	}
}

func (c *Coordinator) sendSyncEvent(event protocol.PlaybackEvent) error {
	if !c.sess.InRoom() {
		return ErrNotInRoom
	}

	if errs, ok := c.validate.Validate(event); !ok {
		return fmt.Errorf("%w: %s", ErrValidation, errs[0].Message)
	}

	return c.relay.Send(protocol.SyncEvent{
		Type:   protocol.TypeSyncEvent,
		RoomID: c.sess.RoomID(),
		UserID: c.sess.UserID(),
		Event:  event,
	})
}

// handleConnState receives connectivity transitions from the
// connection manager and turns them into session state and observer
// notifications.
func (c *Coordinator) handleConnState(ev relay.Event) {
	c.sess.SetConnState(ev.State)

	switch ev.State {
	case session.ConnConnected:
		if ev.Reconnected && c.sess.InRoom() {
			// The relay cannot be assumed to remember us across the
			// outage.
			if err := c.relay.Send(protocol.JoinRoom{
				Type:     protocol.TypeJoinRoom,
				RoomID:   c.sess.RoomID(),
				UserID:   c.sess.UserID(),
				UserName: c.sess.UserName(),
			}); err != nil {
				c.logger.Warn("rejoin after reconnect failed", "error", err)
			}
		}
		c.publishConnectivity(ev)

	case session.ConnFailed:
		c.lock.Release()
		c.sess.ClearRoom()
		c.sync.Stop()
		c.notifier.Publish(notifier.Notification{
			Kind:    notifier.KindPermanentFailure,
			Payload: map[string]string{"reason": "connection to relay lost for good, reload to retry"},
		})
		c.publishStatus()

	default:
		c.publishConnectivity(ev)
	}
}

func (c *Coordinator) publishConnectivity(ev relay.Event) {
	payload := map[string]any{"state": ev.State.String()}
	if ev.Attempt > 0 {
		payload["attempt"] = ev.Attempt
		payload["retry_in_ms"] = ev.Delay.Milliseconds()
	}
	c.notifier.Publish(notifier.Notification{Kind: notifier.KindConnectivity, Payload: payload})
}

func (c *Coordinator) publishStatus() {
	c.notifier.Publish(notifier.Notification{
		Kind:    notifier.KindRoomStatus,
		Payload: c.sess.Snapshot(),
	})
}

func (c *Coordinator) publishNotice(message string) {
	c.notifier.Publish(notifier.Notification{
		Kind:    notifier.KindUserNotice,
		Payload: map[string]string{"message": message},
	})
}

func (c *Coordinator) saveSession(ctx context.Context) {
	err := c.prefs.SaveSession(ctx, prefs.LastSession{
		Username: c.sess.UserName(),
		RoomID:   c.sess.RoomID(),
		SavedAt:  c.clock.Now(),
	})
	if err != nil {
		c.logger.Warn("failed to save session", "error", err)
	}
}

func (c *Coordinator) tryRejoinSaved(ctx context.Context) {
	saved, err := c.prefs.LoadSession(ctx)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) {
			c.logger.Warn("failed to load saved session", "error", err)
		}
		return
	}

	if saved.Username != "" {
		c.sess.SetUserName(saved.Username)
	}

	if !saved.Fresh(c.clock.Now()) {
		return
	}

	c.logger.Info("rejoining saved room", "room_id", saved.RoomID)
	if err := c.JoinRoom(ctx, saved.RoomID); err != nil {
		c.logger.Warn("rejoin of saved room failed", "room_id", saved.RoomID, "error", err)
	}
}

func (c *Coordinator) pendingKind() string {
	if op, held := c.lock.Current(); held {
		return op.Kind.String()
	}
	return "unknown"
}

func isRoomNotFound(code, message string) bool {
	return code == protocol.ErrCodeRoomNotFound || strings.Contains(message, "does not exist")
}
