package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coview/client/internal/notifier"
	"github.com/coview/client/internal/playback"
	"github.com/coview/client/internal/protocol"
	"github.com/coview/client/internal/session"
	"github.com/coview/client/pkg/wsrouter"
)

// handleFrame is the entry point for every inbound relay frame.
// Malformed payloads are logged and dropped; they never touch session
// state.
func (c *Coordinator) handleFrame(raw []byte) {
	ctx := context.Background()

	if err := c.router.Dispatch(ctx, raw); err != nil {
		c.logger.Warn("dropping inbound frame", "error", err)
	}
}

func (c *Coordinator) buildRouter() *wsrouter.Router {
	mux := wsrouter.New()

	mux.Handle(string(protocol.TypeRoomCreated), handle(c, c.handleRoomCreated))
	mux.Handle(string(protocol.TypeRoomJoined), handle(c, c.handleRoomJoined))
	mux.Handle(string(protocol.TypeRoomLeft), handle(c, c.handleRoomLeft))
	mux.Handle(string(protocol.TypeSyncEvent), handle(c, c.handleSyncEvent))
	mux.Handle(string(protocol.TypeNavigate), handle(c, c.handleNavigate))
	mux.Handle(string(protocol.TypeStateRequest), handle(c, c.handleStateRequest))
	mux.Handle(string(protocol.TypeStateUpdate), handle(c, c.handleStateUpdate))
	mux.Handle(string(protocol.TypeUserJoined), handle(c, c.handleUserJoined))
	mux.Handle(string(protocol.TypeUserLeft), handle(c, c.handleUserLeft))
	mux.Handle(string(protocol.TypeUserKicked), handle(c, c.handleUserKicked))
	mux.Handle(string(protocol.TypeUsersList), handle(c, c.handleUsersList))
	mux.Handle(string(protocol.TypePermissionChanged), handle(c, c.handlePermissionChanged))
	mux.Handle(string(protocol.TypeError), handle(c, c.handleError))
	mux.Handle(string(protocol.TypeHeartbeatAck), handle(c, c.handleHeartbeatAck))
	mux.Handle(string(protocol.TypeJoinerReadyNotif), handle(c, c.handleJoinerReady))

	return mux
}

// handle adapts a typed handler onto the router and counts the frame.
func handle[T any](c *Coordinator, fn func(ctx context.Context, msg T) error) wsrouter.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) error {
		var msg T
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("decode %T: %w", msg, err)
		}

		if c.metrics != nil {
			var env struct {
				Type string `json:"type"`
			}
			_ = json.Unmarshal(raw, &env)
			c.metrics.MessagesReceived.WithLabelValues(env.Type).Inc()
		}

		return fn(ctx, msg)
	}
}

func (c *Coordinator) handleRoomCreated(ctx context.Context, msg protocol.RoomCreated) error {
	c.sess.AdoptUserID(msg.OderID)
	c.sess.EnterRoom(msg.RoomID, msg.IsHost)
	c.sess.ReplaceMembers([]session.Member{{
		ID:         c.sess.UserID(),
		Name:       c.sess.UserName(),
		CanControl: true,
		IsHost:     msg.IsHost,
	}})
	c.lock.Release()
	c.saveSession(ctx)

	c.logger.Info("room created", "room_id", msg.RoomID, "is_host", msg.IsHost)
	c.publishStatus()

	return nil
}

func (c *Coordinator) handleRoomJoined(ctx context.Context, msg protocol.RoomJoined) error {
	c.sess.AdoptUserID(msg.OderID)
	c.sess.EnterRoom(msg.RoomID, msg.IsHost)
	c.sess.ReplaceMembers(toMembers(msg.Users))
	c.lock.Release()
	c.saveSession(ctx)

	c.logger.Info("room joined", "room_id", msg.RoomID, "user_count", msg.UserCount)
	c.publishStatus()

	// Tell the host we are ready to receive the current position.
	return c.relay.Send(protocol.JoinerReady{
		Type:   protocol.TypeJoinerReady,
		RoomID: msg.RoomID,
		UserID: c.sess.UserID(),
	})
}

func (c *Coordinator) handleRoomLeft(ctx context.Context, msg protocol.RoomLeft) error {
	c.sess.ClearRoom()
	c.lock.Release()
	c.sync.Stop()

	c.logger.Info("room left", "room_id", msg.RoomID)
	c.publishStatus()

	return nil
}

func (c *Coordinator) handleSyncEvent(ctx context.Context, msg protocol.RemoteSyncEvent) error {
	// Echo of our own action: already reflected locally, forwarding it
	// to the adapter would loop.
	if msg.OderID == c.sess.UserID() {
		return nil
	}

	return c.applyRemoteEvent(ctx, msg.Event)
}

func (c *Coordinator) handleNavigate(ctx context.Context, msg protocol.RemoteNavigate) error {
	if msg.OderID == c.sess.UserID() {
		return nil
	}

	// Navigation is carried out by the UI surface, not the player.
	c.notifier.Publish(notifier.Notification{
		Kind:    notifier.KindNavigate,
		Payload: msg.Navigation,
	})

	return nil
}

// handleStateRequest answers the relay's snapshot request from the
// live player position. The host is responsible for snapshots.
func (c *Coordinator) handleStateRequest(ctx context.Context, msg protocol.StateRequest) error {
	if !c.sess.IsHost() || !c.adapter.Valid() {
		return nil
	}

	currentTime, err := c.adapter.CurrentTime(ctx)
	if err != nil {
		return fmt.Errorf("read current time: %w", err)
	}
	playing, err := c.adapter.IsPlaying(ctx)
	if err != nil {
		return fmt.Errorf("read playing state: %w", err)
	}

	// Snapshots are time-sensitive and intentionally not durable.
	return c.relay.Send(protocol.StateUpdate{
		Type:        protocol.TypeStateUpdate,
		RoomID:      msg.RoomID,
		IsPlaying:   playing,
		CurrentTime: currentTime,
	})
}

// handleStateUpdate starts playback for a fresh joiner from the
// host's snapshot.
func (c *Coordinator) handleStateUpdate(ctx context.Context, msg protocol.StateUpdate) error {
	if !c.adapter.Valid() {
		return nil
	}

	if err := c.adapter.Seek(ctx, msg.CurrentTime); err != nil {
		return fmt.Errorf("apply snapshot seek: %w", err)
	}

	if msg.IsPlaying {
		if err := c.adapter.Play(ctx); err != nil {
			return fmt.Errorf("apply snapshot play: %w", err)
		}
	} else {
		if err := c.adapter.Pause(ctx); err != nil {
			return fmt.Errorf("apply snapshot pause: %w", err)
		}
	}

	c.publishApplySync(protocol.PlaybackEvent{
		Type:      protocol.EventSeek,
		Time:      msg.CurrentTime,
		Timestamp: c.clock.Now().UnixMilli(),
	})

	return nil
}

func (c *Coordinator) handleUserJoined(ctx context.Context, msg protocol.UserJoined) error {
	c.sess.ReplaceMembers(toMembers(msg.Users))
	c.publishStatus()
	c.publishNotice(fmt.Sprintf("%s joined the room", msg.UserName))

	return nil
}

func (c *Coordinator) handleUserLeft(ctx context.Context, msg protocol.UserLeft) error {
	c.sess.ReplaceMembers(toMembers(msg.Users))
	c.publishStatus()

	if msg.NewHostID != "" && msg.NewHostID == c.sess.UserID() {
		c.publishNotice("you are now the host")
	}

	return nil
}

func (c *Coordinator) handleUserKicked(ctx context.Context, msg protocol.UserKicked) error {
	c.sess.ClearRoom()
	c.lock.Release()
	c.sync.Stop()

	if err := c.prefs.ClearSession(ctx); err != nil {
		c.logger.Warn("failed to clear saved session", "error", err)
	}

	reason := msg.Reason
	if reason == "" {
		reason = "removed from the room"
	}
	c.publishNotice(reason)
	c.publishStatus()

	return nil
}

func (c *Coordinator) handleUsersList(ctx context.Context, msg protocol.UsersList) error {
	c.sess.ReplaceMembers(toMembers(msg.Users))
	c.publishStatus()

	return nil
}

func (c *Coordinator) handlePermissionChanged(ctx context.Context, msg protocol.PermissionChanged) error {
	if msg.OderID == c.sess.UserID() {
		c.sess.SetCanControl(msg.CanControl)
		if msg.CanControl {
			c.publishNotice("you can now control playback")
		} else {
			c.publishNotice("playback control was revoked")
		}
	}
	c.publishStatus()

	return nil
}

// handleError reacts to relay-reported failures. Any held operation
// lock is released so the caller can retry; a room the relay does not
// know is cleared defensively because the relay is authoritative for
// room existence.
func (c *Coordinator) handleError(ctx context.Context, msg protocol.Error) error {
	c.lock.Release()

	if isRoomNotFound(msg.Code, msg.Message) {
		c.sess.ClearRoom()
		c.publishStatus()
	}

	c.logger.Warn("relay error", "code", msg.Code, "message", msg.Message)
	c.publishNotice(msg.Message)

	return nil
}

func (c *Coordinator) handleHeartbeatAck(ctx context.Context, msg protocol.HeartbeatAck) error {
	return nil
}

// handleJoinerReady lets the host push the current position to a
// joiner that finished loading its player.
func (c *Coordinator) handleJoinerReady(ctx context.Context, msg protocol.JoinerReadyNotification) error {
	if !c.sess.IsHost() || !c.adapter.Valid() {
		return nil
	}

	currentTime, err := c.adapter.CurrentTime(ctx)
	if err != nil {
		return fmt.Errorf("read current time: %w", err)
	}
	playing, err := c.adapter.IsPlaying(ctx)
	if err != nil {
		return fmt.Errorf("read playing state: %w", err)
	}

	return c.relay.Send(protocol.StateUpdate{
		Type:        protocol.TypeStateUpdate,
		RoomID:      msg.RoomID,
		IsPlaying:   playing,
		CurrentTime: currentTime,
	})
}

// applyRemoteEvent drives the player adapter through the sync
// controller for a remote participant's playback event.
func (c *Coordinator) applyRemoteEvent(ctx context.Context, event protocol.PlaybackEvent) error {
	if !c.adapter.Valid() {
		c.logger.Debug("player adapter not valid, skipping remote event", "type", event.Type)
		return nil
	}

	local, err := c.adapter.CurrentTime(ctx)
	if err != nil {
		return fmt.Errorf("read current time: %w", err)
	}

	switch event.Type {
	case protocol.EventPlay:
		if err := c.adapter.Play(ctx); err != nil {
			return fmt.Errorf("apply play: %w", err)
		}
		c.applyAction(ctx, c.sync.Decide(local, event.Time, event.Timestamp, true))

	case protocol.EventPause:
		if err := c.sync.ResetSpeed(ctx); err != nil {
			c.logger.Warn("speed reset on pause failed", "error", err)
		}
		if err := c.adapter.Pause(ctx); err != nil {
			return fmt.Errorf("apply pause: %w", err)
		}
		c.applyAction(ctx, c.sync.Decide(local, event.Time, event.Timestamp, false))

	case protocol.EventSeek:
		playing, err := c.adapter.IsPlaying(ctx)
		if err != nil {
			return fmt.Errorf("read playing state: %w", err)
		}
		c.applyAction(ctx, c.sync.Decide(local, event.Time, event.Timestamp, playing))

	case protocol.EventAdStarted:
		playing, err := c.adapter.IsPlaying(ctx)
		if err != nil {
			return fmt.Errorf("read playing state: %w", err)
		}
		if playing {
			c.adMu.Lock()
			c.adActive = true
			c.adMu.Unlock()
			if err := c.adapter.Pause(ctx); err != nil {
				return fmt.Errorf("pause for remote ad break: %w", err)
			}
		}

	case protocol.EventAdEnded:
		c.adMu.Lock()
		resume := c.adActive
		c.adActive = false
		c.adMu.Unlock()
		if resume {
			if err := c.adapter.Play(ctx); err != nil {
				return fmt.Errorf("resume after remote ad break: %w", err)
			}
		}

	default:
		return fmt.Errorf("unknown playback event type %q", event.Type)
	}

	c.publishApplySync(event)

	return nil
}

func (c *Coordinator) applyAction(ctx context.Context, action playback.SyncAction) {
	if c.metrics != nil {
		c.metrics.SyncActions.WithLabelValues(action.Kind.String()).Inc()
	}

	if err := c.sync.Apply(ctx, action); err != nil {
		c.logger.Warn("sync action failed", "action", action.String(), "error", err)
	}
}

func (c *Coordinator) publishApplySync(event protocol.PlaybackEvent) {
	c.notifier.Publish(notifier.Notification{
		Kind:    notifier.KindApplySync,
		Payload: event,
	})
}

func toMembers(users []protocol.User) []session.Member {
	members := make([]session.Member, len(users))
	for i, u := range users {
		members[i] = session.Member{
			ID:         u.UserID,
			Name:       u.UserName,
			CanControl: u.CanControl,
			IsHost:     u.IsHost,
		}
	}

	return members
}
