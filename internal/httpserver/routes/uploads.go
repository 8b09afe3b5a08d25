package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/handlers"
)

func init() {
	Register(registerFileAPI)
	RegisterUntimed(registerUploads)
}

func registerFileAPI(r chi.Router, d deps.Deps) {
	r.Get("/api/files", handlers.Files(d))
	r.Get("/api/storage", handlers.Storage(d))
}

func registerUploads(r chi.Router, d deps.Deps) {
	r.Get("/uploads/{name}", handlers.Upload(d))
}
