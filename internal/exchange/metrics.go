package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks venue API calls by endpoint.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_venue_requests_total",
		Help: "Total number of venue API requests",
	}, []string{"endpoint"})

	// RequestErrorsTotal tracks failed venue API calls by endpoint.
	RequestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_venue_request_errors_total",
		Help: "Total number of failed venue API requests",
	}, []string{"endpoint"})

	// RequestDurationSeconds tracks venue API latency by endpoint.
	RequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kalshi_edge_venue_request_duration_seconds",
		Help:    "Duration of venue API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// MarketsFetchedTotal tracks markets returned by discovery.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_venue_markets_fetched_total",
		Help: "Total number of markets fetched from the venue",
	})

	// OrdersPlacedTotal tracks orders submitted to the venue.
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_venue_orders_placed_total",
		Help: "Total number of orders placed on the venue",
	})
)
