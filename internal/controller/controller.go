// Package controller is the local control surface: a REST API for UI
// surfaces to drive the session and a websocket feed carrying
// notifications back to them.
package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/coview/client/internal/notifier"
	"github.com/coview/client/internal/session"
	"github.com/coview/client/pkg/validator"
)

type iCoordinator interface {
	Status() session.Status
	CreateRoom(ctx context.Context, username string) error
	JoinRoom(ctx context.Context, code string) error
	LeaveRoom(ctx context.Context) error
	KickUser(ctx context.Context, targetUserID string) error
	SetPermission(ctx context.Context, targetUserID string, canControl bool) error
	SetName(ctx context.Context, name string) error
	Navigate(ctx context.Context, url, platform string) error
}

type Controller struct {
	coordinator iCoordinator
	notifier    *notifier.Notifier
	metrics     http.Handler
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(coordinator iCoordinator, n *notifier.Notifier, metricsHandler http.Handler, logger *slog.Logger) *Controller {
	return &Controller{
		coordinator: coordinator,
		notifier:    n,
		metrics:     metricsHandler,
		upgrader: websocket.Upgrader{
			// The API listens on loopback only; origins are local
			// surfaces.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
}
