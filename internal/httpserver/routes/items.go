package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/mw"
)

func init() {
	Register(registerItems)
	RegisterUntimed(registerPostItem)
}

func registerItems(r chi.Router, d deps.Deps) {
	admin := mw.AllowOnlyCIDRS(d.AdminCIDRS, d.TrustProxy, d.Logger)

	r.Get("/", handlers.Home(d))
	r.Get("/items", handlers.ListItems(d))
	r.With(admin).Delete("/item/{id}", handlers.DeleteItem(d))
	r.With(admin).Delete("/items", handlers.ClearItems(d))
}

func registerPostItem(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.PostBurst,
		RefillPerIPPerMin: d.PostPerMin,
		MaxEntries:        4096,
		TrustProxy:        d.TrustProxy,
		Logger:            d.Logger,
	})
	r.With(limit).Post("/item", handlers.PostItem(d))
}
