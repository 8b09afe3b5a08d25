package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/mw"
)

func init() { Register(registerDevices) }

func registerDevices(r chi.Router, d deps.Deps) {
	admin := mw.AllowOnlyCIDRS(d.AdminCIDRS, d.TrustProxy, d.Logger)

	r.With(admin).Get("/devices", handlers.ListDevices(d))
	r.With(admin).Put("/devices/{id}", handlers.RenameDevice(d))
	r.With(admin).Delete("/devices/{id}", handlers.DeleteDevice(d))
}
