package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/handlers"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps) {
	r.With(local(d)).Post("/api/sync", handlers.Sync(d))
	r.With(local(d)).Get("/api/connectivity", handlers.GetConnectivity(d))
	r.With(local(d)).Post("/api/connectivity", handlers.SetConnectivity(d))
}
