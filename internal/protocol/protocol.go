package protocol

import (
	"errors"
	"fmt"
	"strings"
)

const roomCodeLength = 8

var ErrInvalidRoomCode = errors.New("invalid room code")

// NormalizeRoomCode uppercases a user-supplied room code and checks it
// is exactly eight alphanumeric characters.
func NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != roomCodeLength {
		return "", fmt.Errorf("%w: must be %d characters", ErrInvalidRoomCode, roomCodeLength)
	}

	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q is not alphanumeric", ErrInvalidRoomCode, r)
		}
	}

	return code, nil
}

// IsDurable reports whether an outbound message kind survives a dead
// channel and is worth re-sending after a reconnect. Heartbeats and
// state snapshots are time-sensitive: a stale value is worse than
// silence.
func IsDurable(t Type) bool {
	switch t {
	case TypeCreateRoom, TypeJoinRoom, TypeLeaveRoom,
		TypeSyncEvent, TypeNavigate,
		TypeKickUser, TypeSetPermission, TypeSetName,
		TypeJoinerReady:
		return true
	default:
		return false
	}
}

// DedupKey identifies queue entries that supersede each other while
// the channel is down. Two queued sync events for the same room keep
// only the newest; distinct lifecycle kinds never collapse.
func DedupKey(msg any) string {
	switch m := msg.(type) {
	case SyncEvent:
		return string(TypeSyncEvent) + "/" + m.RoomID
	case *SyncEvent:
		return string(TypeSyncEvent) + "/" + m.RoomID
	case Navigate:
		return string(TypeNavigate) + "/" + m.RoomID
	case *Navigate:
		return string(TypeNavigate) + "/" + m.RoomID
	case SetName:
		return string(TypeSetName) + "/" + m.UserID
	case *SetName:
		return string(TypeSetName) + "/" + m.UserID
	default:
		return ""
	}
}

// TypeOf extracts the discriminator from a typed outbound message.
func TypeOf(msg any) Type {
	switch m := msg.(type) {
	case CreateRoom:
		return m.Type
	case JoinRoom:
		return m.Type
	case LeaveRoom:
		return m.Type
	case SyncEvent:
		return m.Type
	case Navigate:
		return m.Type
	case KickUser:
		return m.Type
	case SetPermission:
		return m.Type
	case SetName:
		return m.Type
	case Heartbeat:
		return m.Type
	case JoinerReady:
		return m.Type
	case StateUpdate:
		return m.Type
	default:
		return ""
	}
}
