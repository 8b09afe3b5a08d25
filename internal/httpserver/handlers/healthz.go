package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/version"
)

type healthzResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Items         int          `json:"items"`
	Devices       int          `json:"devices"`
	Subscribers   int          `json:"subscribers"`
	Uploads       bool         `json:"uploads_enabled"`
	Build         version.Info `json:"build"`
}

// Healthz reports liveness plus a snapshot of the in-memory state.
func Healthz(d deps.Deps) http.HandlerFunc {
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: now().Sub(d.StartTime).Seconds(),
			Items:         d.Service.Feed().Count(),
			Devices:       len(d.Service.ListDevices()),
			Subscribers:   d.Service.Subscribers(),
			Uploads:       d.Service.Uploads() != nil,
			Build:         d.Build,
		})
	}
}
