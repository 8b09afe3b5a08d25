// Package metrics holds the Prometheus collectors shared by the service
// and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Live-update metrics
var (
	// Subscribers is the number of currently open viewer connections.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "localdrop_subscribers",
		Help: "Currently connected live-update subscribers",
	})

	// BroadcastsTotal counts fan-out rounds, one per dispatched notice.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localdrop_broadcasts_total",
		Help: "Broadcast rounds by event",
	}, []string{"event"})

	// PushesTotal counts individual deliveries.
	PushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localdrop_pushes_total",
		Help: "Notice deliveries to single subscribers by result",
	}, []string{"result"})

	// PrunedTotal counts subscribers dropped after a failed push.
	PrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localdrop_subscribers_pruned_total",
		Help: "Subscribers removed after a failed push",
	})

	// NoticesDroppedTotal counts notices that could not be queued in time.
	NoticesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localdrop_notices_dropped_total",
		Help: "Notices dropped because the dispatch queue stayed full",
	})
)

// State metrics
var (
	Items = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "localdrop_items",
		Help: "Items currently in the feed",
	})

	Devices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "localdrop_devices",
		Help: "Registered devices",
	})

	// MutationsTotal counts mutating operations by outcome.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localdrop_mutations_total",
		Help: "Mutating operations by operation and result",
	}, []string{"op", "result"})
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localdrop_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "localdrop_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Edge metrics
var (
	// PostsRejectedTotal counts POST /item requests refused by the rate limiter.
	PostsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localdrop_posts_rate_limited_total",
		Help: "Posts rejected by the per-client rate limiter",
	})

	RateLimitClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "localdrop_rate_limit_clients",
		Help: "Clients currently tracked by the post rate limiter",
	})

	// BuildInfo is always 1; the labels carry the build.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "localdrop_build_info",
		Help: "Build information of the running binary",
	}, []string{"version", "commit", "go_version"})
)
