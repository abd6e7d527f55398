package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c *Controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(c.requestIDMw)
	r.Use(c.requestLoggingMw)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", c.handleStatus)

		r.Route("/room", func(r chi.Router) {
			r.Post("/", c.handleCreateRoom)
			r.Post("/join", c.handleJoinRoom)
			r.Post("/leave", c.handleLeaveRoom)
			r.Post("/kick", c.handleKickUser)
			r.Post("/permission", c.handleSetPermission)
			r.Post("/navigate", c.handleNavigate)
		})

		r.Post("/profile/name", c.handleSetName)
	})

	r.HandleFunc("/ws/events", c.handleEventsFeed)

	if c.metrics != nil {
		r.Handle("/metrics", c.metrics)
	}

	return r
}
