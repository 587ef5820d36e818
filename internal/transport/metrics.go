package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivery_total",
			Help: "Total delivery attempts by config type and outcome.",
		},
		[]string{"config_type", "outcome"},
	)
	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifications_delivery_duration_seconds",
			Help:    "Duration of destination delivery attempts.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"config_type"},
	)
)

func outcomeLabel(statusCode int) string {
	if statusCode < 400 {
		return "success"
	}
	return "error"
}
