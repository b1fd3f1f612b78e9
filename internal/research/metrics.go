package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EstimatesTotal tracks completed estimates by model.
	EstimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_research_estimates_total",
		Help: "Total number of completed probability estimates",
	}, []string{"model"})

	// EstimateErrorsTotal tracks failed estimation calls.
	EstimateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_research_estimate_errors_total",
		Help: "Total number of failed estimation calls",
	})

	// ScreensTotal tracks pre-screen outcomes.
	ScreensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_research_screens_total",
		Help: "Total number of pre-screen verdicts by outcome",
	}, []string{"outcome"})

	// TokensTotal tracks token consumption by model and direction.
	TokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_research_tokens_total",
		Help: "Total tokens consumed by model and direction",
	}, []string{"model", "direction"})

	// CostUSDTotal tracks cumulative model spend in dollars.
	CostUSDTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_research_cost_usd_total",
		Help: "Cumulative estimated model spend in USD",
	})
)
