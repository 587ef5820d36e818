package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatch_requests_total",
			Help: "Total dispatch requests by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifications_dispatch_request_duration_seconds",
			Help:    "End-to-end duration of dispatch requests.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	channelFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifications_dispatch_channels_per_request",
			Help:    "Number of channels targeted per dispatch request.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)
)
