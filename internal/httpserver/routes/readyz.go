package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/mw"
)

func init() { Register(registerHealth) }

func registerHealth(r chi.Router, d deps.Deps) {
	guard := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(guard).Get("/healthz", handlers.Healthz(d))
	r.With(guard).Get("/readyz", handlers.Readyz(d))
	r.With(guard).Handle("/metrics", handlers.Metrics())
}
