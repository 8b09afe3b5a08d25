package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg     Registrar
	mws     []Middleware
	untimed bool
}

var registry []entry

// Register a registrar with optional per-route middlewares. Its routes get
// the request timeout.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterUntimed is Register for long-lived routes (live streams, large
// uploads and downloads) that must not be cut by the request timeout.
func RegisterUntimed(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws, untimed: true})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		mws := e.mws
		if !e.untimed && d.RequestTimeout > 0 {
			mws = append([]Middleware{middleware.Timeout(d.RequestTimeout)}, mws...)
		}
		if len(mws) == 0 {
			e.reg(r, d)
			continue
		}
		sub := r.With(mws...) // apply per-route middlewares
		e.reg(sub, d)
	}
}
