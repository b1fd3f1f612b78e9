package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts started full scans.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_scans_total",
		Help: "Total number of full scans started",
	})

	// ScanFailuresTotal counts aborted scans.
	ScanFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_scan_failures_total",
		Help: "Total number of scans that aborted with an error",
	})

	// ScanDurationSeconds tracks full scan wall time.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_edge_scan_duration_seconds",
		Help:    "Duration of completed full scans",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	// EstimateCacheHitsTotal counts estimates reused instead of re-bought.
	EstimateCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_estimate_cache_hits_total",
		Help: "Total number of cached estimates reused during scans",
	})

	// RecommendationsTotal counts created recommendations by direction.
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_recommendations_total",
		Help: "Total number of recommendations created",
	}, []string{"direction"})

	// TradesPlacedTotal counts auto-placed trades.
	TradesPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_auto_trades_total",
		Help: "Total number of automatically placed trades",
	})

	// ReEstimatesTotal counts estimates re-bought after a price move.
	ReEstimatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_re_estimates_total",
		Help: "Total number of markets re-estimated after a material price move",
	})

	// MarketsResolvedTotal counts settled markets by outcome.
	MarketsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_markets_resolved_total",
		Help: "Total number of markets settled by outcome",
	}, []string{"outcome"})
)
