package controller

import (
	"net/http"
)

// handleEventsFeed streams notifications to a local observer over a
// websocket. The subscription is dropped when the surface goes away.
func (c *Controller) handleEventsFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn("events feed upgrade failed", "error", err)
		return
	}

	ch, unsubscribe := c.notifier.Subscribe()
	defer unsubscribe()
	defer conn.Close()

	// Drain the reader so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for notification := range ch {
		if err := conn.WriteJSON(notification); err != nil {
			c.logger.Debug("events feed write failed", "error", err)
			return
		}
	}
}
