package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/handlers"
)

func init() { Register(registerStories) }

func registerStories(r chi.Router, d deps.Deps) {
	r.Route("/api/stories", func(r chi.Router) {
		r.Use(local(d), bounded(d))
		r.With(limited(d)).Post("/", handlers.CreateStory(d))
		r.Get("/", handlers.ListStories(d))
		r.Get("/{id}", handlers.GetStory(d))
	})
}
