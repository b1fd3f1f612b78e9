package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncsTotal counts started reconciliation passes.
	SyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_trade_syncs_total",
		Help: "Total number of trade reconciliation passes started",
	})

	// SyncFailuresTotal counts passes that aborted with an error.
	SyncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_trade_sync_failures_total",
		Help: "Total number of trade reconciliation passes that failed",
	})

	// TradesCreatedTotal counts trades imported from venue fills.
	TradesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_synced_trades_created_total",
		Help: "Total number of trades created from venue fills",
	})

	// TradesUpdatedTotal counts fills matched to auto-placed orders.
	TradesUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_synced_trades_updated_total",
		Help: "Total number of order trades rewritten by a matched fill",
	})

	// TradesCanceledTotal counts trades canceled after a venue order cancel.
	TradesCanceledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_synced_trades_canceled_total",
		Help: "Total number of trades canceled after a venue order cancel",
	})
)
