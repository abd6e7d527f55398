package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceMembersReDerivesOwnFlags(t *testing.T) {
	sess := New("user-1", "alice")
	sess.EnterRoom("ABCD2345", false)
	require.False(t, sess.CanControl())

	sess.ReplaceMembers([]Member{
		{ID: "host-1", Name: "bob", IsHost: true, CanControl: true},
		{ID: "user-1", Name: "alice", CanControl: true},
	})

	assert.True(t, sess.CanControl())
	assert.False(t, sess.IsHost())
	assert.Len(t, sess.Members(), 2)

	// Revocation arrives the same way, as a full replacement.
	sess.ReplaceMembers([]Member{
		{ID: "host-1", Name: "bob", IsHost: true, CanControl: true},
		{ID: "user-1", Name: "alice", CanControl: false},
	})
	assert.False(t, sess.CanControl())
}

func TestReplaceMembersCopiesInput(t *testing.T) {
	sess := New("user-1", "alice")
	in := []Member{{ID: "user-1", Name: "alice"}}
	sess.ReplaceMembers(in)

	in[0].Name = "mallory"
	assert.Equal(t, "alice", sess.Members()[0].Name)
}

func TestHostAlwaysHasControl(t *testing.T) {
	sess := New("user-1", "alice")
	sess.EnterRoom("ABCD2345", true)

	assert.True(t, sess.IsHost())
	assert.True(t, sess.CanControl())
}

func TestConnStateIndependentOfRoom(t *testing.T) {
	sess := New("user-1", "alice")
	sess.EnterRoom("ABCD2345", false)
	sess.SetConnState(ConnReconnecting)

	// Losing the channel does not evict the client from the room.
	assert.True(t, sess.InRoom())
	assert.Equal(t, ConnReconnecting, sess.ConnState())

	sess.ClearRoom()
	sess.SetConnState(ConnConnected)
	assert.False(t, sess.InRoom())
	assert.Equal(t, ConnConnected, sess.ConnState())
}

func TestClearRoomResetsRoomScopedState(t *testing.T) {
	sess := New("user-1", "alice")
	sess.EnterRoom("ABCD2345", true)
	sess.ReplaceMembers([]Member{{ID: "user-1", Name: "alice", IsHost: true, CanControl: true}})

	sess.ClearRoom()

	assert.Empty(t, sess.RoomID())
	assert.False(t, sess.IsHost())
	assert.False(t, sess.CanControl())
	assert.Empty(t, sess.Members())
	assert.Equal(t, "user-1", sess.UserID(), "identity survives leaving the room")
}

func TestAdoptUserID(t *testing.T) {
	sess := New("local-seed", "alice")

	sess.AdoptUserID("relay-42")
	assert.Equal(t, "relay-42", sess.UserID())

	sess.AdoptUserID("")
	assert.Equal(t, "relay-42", sess.UserID(), "empty id is ignored")
}

func TestSnapshot(t *testing.T) {
	sess := New("user-1", "alice")
	sess.EnterRoom("ABCD2345", false)
	sess.SetConnState(ConnConnected)
	sess.ReplaceMembers([]Member{
		{ID: "host-1", Name: "bob", IsHost: true, CanControl: true},
		{ID: "user-1", Name: "alice", CanControl: true},
	})

	st := sess.Snapshot()
	assert.Equal(t, "ABCD2345", st.RoomID)
	assert.True(t, st.CanControl)
	assert.False(t, st.IsHost)
	assert.Equal(t, "connected", st.Connection)
	require.Len(t, st.Members, 2)

	// The snapshot is detached from later mutation.
	sess.ClearRoom()
	assert.Equal(t, "ABCD2345", st.RoomID)
}
