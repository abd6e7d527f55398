// Package prefs persists the last-known username and room so a
// restarted or reconnecting client can offer to rejoin within the
// staleness window.
package prefs

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("no saved session")

// StalenessWindow bounds how old a saved room is still worth
// rejoining.
const StalenessWindow = 30 * time.Minute

type LastSession struct {
	Username string    `json:"username"`
	RoomID   string    `json:"room_id"`
	SavedAt  time.Time `json:"saved_at"`
}

// Fresh reports whether the saved room is still within the staleness
// window at the given instant.
func (s LastSession) Fresh(now time.Time) bool {
	return s.RoomID != "" && now.Sub(s.SavedAt) < StalenessWindow
}

type Repository interface {
	SaveSession(ctx context.Context, sess LastSession) error
	LoadSession(ctx context.Context) (LastSession, error)
	ClearSession(ctx context.Context) error
}
