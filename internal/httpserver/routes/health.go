package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/handlers"
)

func init() { Register(registerHealth) }

func registerHealth(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.With(local(d), bounded(d)).Get("/readyz", handlers.Readyz(d))
}
