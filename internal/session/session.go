// Package session is the single source of truth for room membership
// as this client sees it. All mutation goes through the coordinator;
// the struct itself only guards against concurrent readers.
package session

import (
	"sync"
	"time"
)

type ConnState int

const (
	ConnDisconnected ConnState = iota
	ConnConnecting
	ConnConnected
	ConnReconnecting
	ConnFailed
)

func (s ConnState) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnReconnecting:
		return "reconnecting"
	case ConnFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type Member struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CanControl bool   `json:"can_control"`
	IsHost     bool   `json:"is_host"`
}

// Status is an immutable snapshot handed to observers. Connected and
// RoomID are independent: a client can be logically in a room while
// the channel is down, or connected with no room.
type Status struct {
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	RoomID     string    `json:"room_id"`
	IsHost     bool      `json:"is_host"`
	CanControl bool      `json:"can_control"`
	Members    []Member  `json:"members"`
	ConnState  ConnState `json:"-"`
	Connection string    `json:"connection"`
}

type Session struct {
	mu sync.RWMutex

	userID   string
	userName string

	roomID     string
	isHost     bool
	canControl bool
	members    []Member

	connState       ConnState
	lastConnectedAt time.Time
}

func New(userID, userName string) *Session {
	return &Session{
		userID:   userID,
		userName: userName,
	}
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

func (s *Session) SetUserName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userName = name
}

// AdoptUserID installs the relay-issued participant id as
// authoritative for the rest of the session.
func (s *Session) AdoptUserID(id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
}

func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

func (s *Session) InRoom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID != ""
}

func (s *Session) IsHost() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isHost
}

func (s *Session) CanControl() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canControl || s.isHost
}

// EnterRoom records a successful create or join reply.
func (s *Session) EnterRoom(roomID string, isHost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomID = roomID
	s.isHost = isHost
	s.canControl = isHost
}

// ClearRoom tears down all room-scoped fields. Called on intentional
// leave, kick, unrecoverable disconnect, and relay-reported
// room-not-found.
func (s *Session) ClearRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomID = ""
	s.isHost = false
	s.canControl = false
	s.members = nil
}

// ReplaceMembers swaps the member list wholesale and re-derives the
// local host and control flags from it. The list is the single
// authoritative source so "my role" can never diverge from the room's
// view of it.
func (s *Session) ReplaceMembers(members []Member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members = make([]Member, len(members))
	copy(s.members, members)

	for _, m := range members {
		if m.ID == s.userID {
			s.isHost = m.IsHost
			s.canControl = m.CanControl
			break
		}
	}
}

// SetCanControl applies a directly signaled permission change. Used
// only for PERMISSION_CHANGED, which carries no member list to derive
// from.
func (s *Session) SetCanControl(canControl bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canControl = canControl
}

func (s *Session) Members() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

func (s *Session) SetConnState(state ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connState = state
	if state == ConnConnected {
		s.lastConnectedAt = time.Now()
	}
}

func (s *Session) ConnState() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connState
}

func (s *Session) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]Member, len(s.members))
	copy(members, s.members)

	return Status{
		UserID:     s.userID,
		UserName:   s.userName,
		RoomID:     s.roomID,
		IsHost:     s.isHost,
		CanControl: s.canControl || s.isHost,
		Members:    members,
		ConnState:  s.connState,
		Connection: s.connState.String(),
	}
}
