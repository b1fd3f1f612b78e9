package types

import "time"

// Direction is the side of a binary market a recommendation takes.
type Direction string

const (
	DirectionYes Direction = "yes"
	DirectionNo  Direction = "no"
)

// RecommendationStatus is the lifecycle state of a recommendation.
type RecommendationStatus string

const (
	RecommendationActive   RecommendationStatus = "active"
	RecommendationExpired  RecommendationStatus = "expired"
	RecommendationResolved RecommendationStatus = "resolved"
)

// Recommendation is a stored bet suggestion tying an estimate to the
// snapshot it was priced against. At most one active recommendation
// exists per market.
type Recommendation struct {
	ID            string
	MarketID      string
	EstimateID    string
	SnapshotID    string
	Direction     Direction
	MarketPrice   float64
	AIProbability float64
	Edge          float64
	EV            float64
	KellyFraction float64
	Status        RecommendationStatus
	CreatedAt     time.Time
}

// PerformanceRecord is the resolved outcome of a scored market.
// SimulatedPnL is what the recommendation's Kelly stake would have
// returned, whether or not a real trade was placed.
type PerformanceRecord struct {
	ID               string
	MarketID         string
	RecommendationID *string
	AIProbability    float64
	MarketPrice      float64
	ActualOutcome    bool
	PnL              float64
	SimulatedPnL     *float64
	BrierScore       float64
	ResolvedAt       time.Time
}

// PerformanceAggregate summarizes resolved performance.
type PerformanceAggregate struct {
	TotalResolved int
	HitRate       float64
	AvgBrier      float64
	TotalPnL      float64
	AvgEdge       float64
}

// CalibrationBucket groups resolved estimates by predicted probability.
type CalibrationBucket struct {
	BucketMin       float64
	BucketMax       float64
	PredictedAvg    float64
	ActualFrequency float64
	Count           int
}
