package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coview/client/internal/coordinator"
	"github.com/coview/client/pkg/validator"
)

type errorResponse struct {
	Error   string                      `json:"error"`
	Details []validator.ValidationError `json:"details,omitempty"`
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.logger.Warn("failed to write response", "error", err)
	}
}

// writeError maps coordinator failures to HTTP statuses. Conflicts
// from the operation lock are retryable by the caller; permission
// failures are not.
func (c *Controller) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, coordinator.ErrOperationInProgress):
		status = http.StatusConflict
	case errors.Is(err, coordinator.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, coordinator.ErrNotInRoom):
		status = http.StatusBadRequest
	case errors.Is(err, coordinator.ErrValidation):
		status = http.StatusUnprocessableEntity
	}

	c.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (c *Controller) decodeAndValidate(w http.ResponseWriter, r *http.Request, input any) bool {
	if err := json.NewDecoder(r.Body).Decode(input); err != nil {
		c.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}

	if errs, ok := c.validate.Validate(input); !ok {
		c.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Details: errs})
		return false
	}

	return true
}

func (c *Controller) handleStatus(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, c.coordinator.Status())
}

type createRoomInput struct {
	Username string `json:"username" validate:"omitempty,min=1,max=32"`
}

func (c *Controller) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var input createRoomInput
	if !c.decodeAndValidate(w, r, &input) {
		return
	}

	if err := c.coordinator.CreateRoom(r.Context(), input.Username); err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusAccepted, c.coordinator.Status())
}

type joinRoomInput struct {
	RoomID string `json:"room_id" validate:"required"`
}

func (c *Controller) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var input joinRoomInput
	if !c.decodeAndValidate(w, r, &input) {
		return
	}

	if err := c.coordinator.JoinRoom(r.Context(), input.RoomID); err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusAccepted, c.coordinator.Status())
}

func (c *Controller) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.coordinator.LeaveRoom(r.Context()); err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusAccepted, c.coordinator.Status())
}

type kickUserInput struct {
	UserID string `json:"user_id" validate:"required"`
}

func (c *Controller) handleKickUser(w http.ResponseWriter, r *http.Request) {
	var input kickUserInput
	if !c.decodeAndValidate(w, r, &input) {
		return
	}

	if err := c.coordinator.KickUser(r.Context(), input.UserID); err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

type setPermissionInput struct {
	UserID     string `json:"user_id" validate:"required"`
	CanControl *bool  `json:"can_control" validate:"required"`
}

func (c *Controller) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	var input setPermissionInput
	if !c.decodeAndValidate(w, r, &input) {
		return
	}

	if err := c.coordinator.SetPermission(r.Context(), input.UserID, *input.CanControl); err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

type setNameInput struct {
	Name string `json:"name" validate:"required,min=1,max=32"`
}

func (c *Controller) handleSetName(w http.ResponseWriter, r *http.Request) {
	var input setNameInput
	if !c.decodeAndValidate(w, r, &input) {
		return
	}

	if err := c.coordinator.SetName(r.Context(), input.Name); err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusAccepted, c.coordinator.Status())
}

type navigateInput struct {
	URL      string `json:"url" validate:"required,url"`
	Platform string `json:"platform" validate:"required"`
}

func (c *Controller) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var input navigateInput
	if !c.decodeAndValidate(w, r, &input) {
		return
	}

	if err := c.coordinator.Navigate(r.Context(), input.URL, input.Platform); err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}
