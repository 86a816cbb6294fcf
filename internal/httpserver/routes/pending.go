package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/handlers"
)

func init() { Register(registerPending) }

func registerPending(r chi.Router, d deps.Deps) {
	r.Route("/api/pending", func(r chi.Router) {
		r.Use(local(d), bounded(d))
		r.Get("/", handlers.ListPending(d))
		r.Delete("/{tempID}", handlers.RemovePending(d))
		r.Post("/{tempID}/sync", handlers.SyncPending(d))
	})
}
