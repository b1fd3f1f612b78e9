package types

import "time"

// TradeStatus is the lifecycle state of a local trade record.
type TradeStatus string

const (
	TradeOpen     TradeStatus = "open"
	TradeClosed   TradeStatus = "closed"
	TradeCanceled TradeStatus = "canceled"
)

// Trade is a position opened on the venue, either by the auto-trader
// (VenueTradeID prefixed "order_") or discovered during fill sync
// (prefixed "fill_"). Price is a probability in [0, 1].
type Trade struct {
	ID               string
	MarketID         string
	RecommendationID *string
	VenueTradeID     string
	Direction        Direction
	Price            float64
	Contracts        int
	Amount           float64 // dollars at entry
	FeesPaid         float64 // venue fees in dollars
	Status           TradeStatus
	PnL              *float64
	CreatedAt        time.Time
	ClosedAt         *time.Time
}

// SyncResult summarizes one reconciliation pass against the venue.
type SyncResult struct {
	FillsSeen      int
	TradesCreated  int
	TradesUpdated  int
	TradesCanceled int
	Skipped        int
	RanAt          time.Time
}
