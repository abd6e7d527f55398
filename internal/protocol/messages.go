// Package protocol defines the wire vocabulary exchanged with the
// relay. Messages are JSON, one per frame, discriminated by the "type"
// field which sits next to the message fields rather than wrapping
// them.
package protocol

type Type string

// Client to relay.
const (
	TypeCreateRoom    Type = "CREATE_ROOM"
	TypeJoinRoom      Type = "JOIN_ROOM"
	TypeLeaveRoom     Type = "LEAVE_ROOM"
	TypeSyncEvent     Type = "SYNC_EVENT"
	TypeNavigate      Type = "NAVIGATE"
	TypeKickUser      Type = "KICK_USER"
	TypeSetPermission Type = "SET_PERMISSION"
	TypeSetName       Type = "SET_NAME"
	TypeHeartbeat     Type = "HEARTBEAT"
	TypeJoinerReady   Type = "JOINER_READY"
)

// Relay to client.
const (
	TypeRoomCreated        Type = "ROOM_CREATED"
	TypeRoomJoined         Type = "ROOM_JOINED"
	TypeRoomLeft           Type = "ROOM_LEFT"
	TypeStateRequest       Type = "STATE_REQUEST"
	TypeStateUpdate        Type = "STATE_UPDATE"
	TypeUserJoined         Type = "USER_JOINED"
	TypeUserLeft           Type = "USER_LEFT"
	TypeUserKicked         Type = "USER_KICKED"
	TypeUsersList          Type = "USERS_LIST"
	TypePermissionChanged  Type = "PERMISSION_CHANGED"
	TypeError              Type = "ERROR"
	TypeHeartbeatAck       Type = "HEARTBEAT_ACK"
	TypeJoinerReadyNotif   Type = "JOINER_READY_NOTIFICATION"
)

type EventType string

const (
	EventPlay      EventType = "PLAY"
	EventPause     EventType = "PAUSE"
	EventSeek      EventType = "SEEK"
	EventAdStarted EventType = "AD_STARTED"
	EventAdEnded   EventType = "AD_ENDED"
)

// PlaybackEvent is the normalized playback report carried by
// SYNC_EVENT in both directions. Time is the playback position in
// seconds, Timestamp the sender's wall clock in unix milliseconds.
type PlaybackEvent struct {
	Type      EventType `json:"type" validate:"required,oneof=PLAY PAUSE SEEK AD_STARTED AD_ENDED"`
	Time      float64   `json:"time" validate:"finite-time"`
	Timestamp int64     `json:"timestamp" validate:"gt=0"`
	VideoID   string    `json:"videoId,omitempty"`
}

// Navigation tells other participants to open the same media page.
type Navigation struct {
	URL       string `json:"url" validate:"required,url"`
	Platform  string `json:"platform" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"gt=0"`
}

// User is the relay's view of one participant. Member lists are always
// replaced wholesale with what the relay sends.
type User struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	CanControl bool   `json:"canControl"`
	IsHost     bool   `json:"isHost"`
}

type CreateRoom struct {
	Type     Type   `json:"type"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type JoinRoom struct {
	Type     Type   `json:"type"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type LeaveRoom struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type SyncEvent struct {
	Type   Type          `json:"type"`
	RoomID string        `json:"roomId"`
	UserID string        `json:"userId"`
	Event  PlaybackEvent `json:"event"`
}

type Navigate struct {
	Type       Type       `json:"type"`
	RoomID     string     `json:"roomId"`
	UserID     string     `json:"userId"`
	Navigation Navigation `json:"navigation"`
}

type KickUser struct {
	Type         Type   `json:"type"`
	RoomID       string `json:"roomId"`
	UserID       string `json:"userId"`
	TargetUserID string `json:"targetUserId"`
}

type SetPermission struct {
	Type         Type   `json:"type"`
	RoomID       string `json:"roomId"`
	UserID       string `json:"userId"`
	TargetUserID string `json:"targetUserId"`
	CanControl   bool   `json:"canControl"`
}

type SetName struct {
	Type   Type   `json:"type"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type Heartbeat struct {
	Type   Type   `json:"type"`
	UserID string `json:"userId"`
}

type JoinerReady struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type StateUpdate struct {
	Type        Type    `json:"type"`
	RoomID      string  `json:"roomId"`
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
}

type RoomCreated struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId"`
	IsHost bool   `json:"isHost"`
	OderID string `json:"oderId"`
}

type RoomJoined struct {
	Type      Type   `json:"type"`
	RoomID    string `json:"roomId"`
	UserCount int    `json:"userCount"`
	IsHost    bool   `json:"isHost"`
	Users     []User `json:"users"`
	OderID    string `json:"oderId"`
}

type RoomLeft struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId"`
}

type RemoteSyncEvent struct {
	Type   Type          `json:"type"`
	RoomID string        `json:"roomId"`
	OderID string        `json:"oderId"`
	Event  PlaybackEvent `json:"event"`
}

type RemoteNavigate struct {
	Type       Type       `json:"type"`
	RoomID     string     `json:"roomId"`
	OderID     string     `json:"oderId"`
	Navigation Navigation `json:"navigation"`
}

type StateRequest struct {
	Type        Type   `json:"type"`
	RoomID      string `json:"roomId"`
	RequesterID string `json:"requesterId"`
}

type UserJoined struct {
	Type      Type   `json:"type"`
	RoomID    string `json:"roomId"`
	OderID    string `json:"oderId"`
	UserName  string `json:"userName"`
	UserCount int    `json:"userCount"`
	Users     []User `json:"users"`
}

type UserLeft struct {
	Type      Type   `json:"type"`
	RoomID    string `json:"roomId"`
	OderID    string `json:"oderId"`
	UserCount int    `json:"userCount"`
	NewHostID string `json:"newHostId,omitempty"`
	Users     []User `json:"users"`
}

type UserKicked struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId"`
	OderID string `json:"oderId"`
	Reason string `json:"reason"`
}

type UsersList struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId"`
	Users  []User `json:"users"`
}

type PermissionChanged struct {
	Type       Type   `json:"type"`
	RoomID     string `json:"roomId"`
	OderID     string `json:"oderId"`
	CanControl bool   `json:"canControl"`
}

type Error struct {
	Type    Type   `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HeartbeatAck struct {
	Type Type `json:"type"`
}

type JoinerReadyNotification struct {
	Type         Type   `json:"type"`
	RoomID       string `json:"roomId"`
	JoinerUserID string `json:"joinerUserId"`
}

// Relay error codes the client reacts to specifically.
const (
	ErrCodeRoomNotFound = "ROOM_NOT_FOUND"
)
