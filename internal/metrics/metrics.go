package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	// HTTPRequestsTotal counts requests by mux route template, method and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks handler latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"route"},
	)

	// AuthRateLimited counts login and signup attempts rejected by the limiter
	AuthRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warbler_auth_rate_limited_total",
			Help: "Total login and signup attempts rejected by the rate limiter",
		},
	)
)

// Domain Metrics
var (
	SignupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warbler_signups_total",
			Help: "Total successful signups",
		},
	)

	// LoginsTotal counts login attempts by result (success/failure)
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_logins_total",
			Help: "Total login attempts by result",
		},
		[]string{"result"},
	)

	// MessagesTotal counts message writes by action (posted/deleted)
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_messages_total",
			Help: "Total message writes by action",
		},
		[]string{"action"},
	)

	// FollowsTotal counts follow edge changes by action (follow/unfollow)
	FollowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_follows_total",
			Help: "Total follow edge changes by action",
		},
		[]string{"action"},
	)

	// LikesTotal counts like toggles by action (like/unlike)
	LikesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_likes_total",
			Help: "Total like toggles by action",
		},
		[]string{"action"},
	)
)
