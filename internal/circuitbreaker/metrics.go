package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TripsTotal counts how many times the breaker has tripped.
	TripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_breaker_trips_total",
		Help: "Total number of times the estimation breaker tripped",
	})

	// ConsecutiveFailures exposes the current failure streak.
	ConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_edge_breaker_consecutive_failures",
		Help: "Current consecutive estimation failure count",
	})
)
