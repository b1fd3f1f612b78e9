package types

import "time"

// MarketStatus is the lifecycle state of a tracked market.
type MarketStatus string

const (
	MarketActive   MarketStatus = "active"
	MarketClosed   MarketStatus = "closed"
	MarketResolved MarketStatus = "resolved"
)

// Market is a binary prediction market tracked in the local database.
// VenueID is the venue's ticker; ID is our own row id.
type Market struct {
	ID                 string
	Venue              string
	VenueID            string
	Question           string
	Description        string
	ResolutionCriteria string
	Category           string
	EventTicker        string
	CloseTime          time.Time
	Status             MarketStatus
	Outcome            *bool // set when resolved: true = YES
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Snapshot is a point-in-time price observation for a market.
// Prices are probabilities in [0, 1].
type Snapshot struct {
	ID         string
	MarketID   string
	PriceYes   float64
	PriceNo    float64
	Volume     float64
	Liquidity  float64
	CapturedAt time.Time
}

// VenueMarket is a market as returned by the venue API, after price
// extraction and category detection but before persistence.
type VenueMarket struct {
	Ticker             string
	EventTicker        string
	Question           string
	Description        string
	ResolutionCriteria string
	Category           string
	SportType          string // detected league, e.g. "NBA"; empty for non-sports
	PriceYes           float64 // probability, from cents
	Volume             float64
	Liquidity          float64
	CloseTime          time.Time
}

// ResolutionState is the venue's view of a market past its close time.
type ResolutionState int

const (
	ResolutionPending ResolutionState = iota
	ResolutionResolvedYes
	ResolutionResolvedNo
	ResolutionVoided
)
