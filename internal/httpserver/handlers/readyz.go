package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
)

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Readyz checks the optional backends. Only redis can make the process
// unready; uploads being unwritable is reported but keeps text sharing up.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Checks: map[string]string{}}

		if d.RedisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := d.RedisClient.Ping(ctx).Err()
			cancel()
			if err != nil {
				d.Logger.Warn("readiness: redis ping failed", logger.Error(err))
				resp.Ready = false
				resp.Checks["redis"] = "unreachable"
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		if d.Service.Uploads() != nil {
			if _, err := d.Service.Storage(); err != nil {
				resp.Checks["uploads"] = "unavailable"
			} else {
				resp.Checks["uploads"] = "ok"
			}
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
