package mw

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/localdrop/internal/logger"
)

// Log returns a middleware that logs one line per HTTP request using the provided logger.
// The writer is wrapped with httpsnoop so Flusher and Hijacker stay reachable
// for the live-update routes.
func Log(loggerClient logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			reqID := middleware.GetReqID(r.Context())
			loggerClient.Info("http_request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", m.Code),
				logger.Int64("bytes", m.Written),
				logger.Duration("duration", m.Duration),
				logger.String("remote_ip", r.RemoteAddr),
				logger.String("user_agent", r.UserAgent()),
				logger.String("request_id", reqID),
			)
		})
	}
}
