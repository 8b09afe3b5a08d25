package mw

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/metrics"
)

// Metrics records request counts and durations per chi route pattern, so
// path parameters do not explode label cardinality.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
		})
	}
}
