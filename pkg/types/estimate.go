package types

import "time"

// Confidence is the model's self-reported confidence in an estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NormalizeConfidence maps arbitrary model output onto a known level.
// Unknown values default to medium.
func NormalizeConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	default:
		return ConfidenceMedium
	}
}

// BlindInput is what the researcher sends to the model. It must never
// carry prices, volume, liquidity, or anything derived from market data.
type BlindInput struct {
	Question           string
	ResolutionCriteria string
	CloseDate          string
	Category           string
	SportType          string
	// CalibrationFeedback summarizes past estimation accuracy. It is
	// derived from resolved outcomes only, never from prices.
	CalibrationFeedback string
}

// Estimate is a persisted probability estimate for a market.
type Estimate struct {
	ID               string
	MarketID         string
	Probability      float64
	Confidence       Confidence
	Reasoning        string
	KeyEvidence      []string
	KeyUncertainties []string
	Model            string
	CreatedAt        time.Time
}

// ResearchCost records the token spend of a single model call.
type ResearchCost struct {
	ID           string
	MarketID     string
	Model        string
	Purpose      string // "screen", "estimate", "batch"
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	CreatedAt    time.Time
}
