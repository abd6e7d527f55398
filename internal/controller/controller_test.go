package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coview/client/internal/coordinator"
	"github.com/coview/client/internal/notifier"
	"github.com/coview/client/internal/session"
)

type stubCoordinator struct {
	status session.Status
	err    error

	joinedRoom string
	kicked     string
	name       string
	navigated  string
}

func (s *stubCoordinator) Status() session.Status { return s.status }

func (s *stubCoordinator) CreateRoom(context.Context, string) error { return s.err }

func (s *stubCoordinator) JoinRoom(_ context.Context, code string) error {
	s.joinedRoom = code
	return s.err
}

func (s *stubCoordinator) LeaveRoom(context.Context) error { return s.err }

func (s *stubCoordinator) KickUser(_ context.Context, target string) error {
	s.kicked = target
	return s.err
}

func (s *stubCoordinator) SetPermission(context.Context, string, bool) error { return s.err }

func (s *stubCoordinator) SetName(_ context.Context, name string) error {
	s.name = name
	return s.err
}

func (s *stubCoordinator) Navigate(_ context.Context, url, _ string) error {
	s.navigated = url
	return s.err
}

func newTestController(stub *stubCoordinator) (http.Handler, *notifier.Notifier) {
	hub := notifier.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController(stub, hub, nil, logger)

	return ctrl.GetMux(), hub
}

func doRequest(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	return rec
}

func TestStatusEndpoint(t *testing.T) {
	stub := &stubCoordinator{status: session.Status{
		UserID:     "user-1",
		RoomID:     "ABCD2345",
		Connection: "connected",
	}}
	mux, _ := newTestController(stub)

	rec := doRequest(t, mux, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got session.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ABCD2345", got.RoomID)
	assert.Equal(t, "connected", got.Connection)
}

func TestJoinRoomEndpoint(t *testing.T) {
	stub := &stubCoordinator{}
	mux, _ := newTestController(stub)

	rec := doRequest(t, mux, http.MethodPost, "/api/room/join", `{"room_id":"abcd2345"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "abcd2345", stub.joinedRoom)
}

func TestJoinRoomValidation(t *testing.T) {
	stub := &stubCoordinator{}
	mux, _ := newTestController(stub)

	rec := doRequest(t, mux, http.MethodPost, "/api/room/join", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, stub.joinedRoom)

	rec = doRequest(t, mux, http.MethodPost, "/api/room/join", `{"room_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "operation in progress", err: coordinator.ErrOperationInProgress, want: http.StatusConflict},
		{name: "permission denied", err: coordinator.ErrPermissionDenied, want: http.StatusForbidden},
		{name: "not in room", err: coordinator.ErrNotInRoom, want: http.StatusBadRequest},
		{name: "validation", err: coordinator.ErrValidation, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubCoordinator{err: tt.err}
			mux, _ := newTestController(stub)

			rec := doRequest(t, mux, http.MethodPost, "/api/room/join", `{"room_id":"ABCD2345"}`)
			assert.Equal(t, tt.want, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestSetPermissionRequiresExplicitFlag(t *testing.T) {
	stub := &stubCoordinator{}
	mux, _ := newTestController(stub)

	rec := doRequest(t, mux, http.MethodPost, "/api/room/permission", `{"user_id":"u2"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(t, mux, http.MethodPost, "/api/room/permission", `{"user_id":"u2","can_control":false}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNavigateRejectsBadURL(t *testing.T) {
	stub := &stubCoordinator{}
	mux, _ := newTestController(stub)

	rec := doRequest(t, mux, http.MethodPost, "/api/room/navigate", `{"url":"not a url","platform":"example"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, stub.navigated)
}

func TestEventsFeedDeliversNotifications(t *testing.T) {
	stub := &stubCoordinator{}
	mux, hub := newTestController(stub)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the handler a moment to register the subscription.
	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	hub.Publish(notifier.Notification{Kind: notifier.KindUserNotice, Payload: map[string]string{"message": "hi"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got notifier.Notification
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, notifier.KindUserNotice, got.Kind)
}
