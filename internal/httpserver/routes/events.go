package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
)

func init() { Register(registerEvents) }

func registerEvents(r chi.Router, d deps.Deps) {
	if d.Events == nil {
		return
	}
	r.With(local(d)).Get("/api/events", d.Events.ServeHTTP)
}
