// Package calc holds the pure betting math: fees, expected value, Kelly
// sizing, Brier scores and realized PnL. Everything here is a total
// function over its inputs; degenerate prices yield zeros, never panics.
package calc

import (
	"math"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

// feeRate is the venue's quadratic fee coefficient. The fee per contract
// at price p is feeRate * p * (1-p), charged on the entered side.
const feeRate = 0.07

// Opportunity is a priced edge on one side of a market. Edge and EV are
// side-relative and positive; EV is per contract, after fees.
type Opportunity struct {
	Direction types.Direction
	Edge      float64
	EV        float64
	Fee       float64
}

// Fee returns the per-contract trading fee at entry price p.
func Fee(p float64) float64 {
	return feeRate * p * (1 - p)
}

// Evaluate compares the model's probability against the market price and
// returns the opportunity on whichever side clears minEdge. The second
// return is false when neither side does, or when the price is
// degenerate (outside the open interval (0, 1)).
func Evaluate(pAI, pMkt, minEdge float64) (Opportunity, bool) {
	if pMkt <= 0 || pMkt >= 1 || math.IsNaN(pAI) || math.IsNaN(pMkt) {
		return Opportunity{}, false
	}

	if edge := pAI - pMkt; edge >= minEdge {
		fee := Fee(pMkt)
		return Opportunity{
			Direction: types.DirectionYes,
			Edge:      edge,
			EV:        edge - fee,
			Fee:       fee,
		}, true
	}

	if edge := pMkt - pAI; edge >= minEdge {
		// Entering NO buys at 1-p, so the fee is charged there. The
		// quadratic is symmetric but the entry price is not.
		fee := Fee(1 - pMkt)
		return Opportunity{
			Direction: types.DirectionNo,
			Edge:      edge,
			EV:        edge - fee,
			Fee:       fee,
		}, true
	}

	return Opportunity{}, false
}

// ConfidenceMultiplier scales position size by the model's self-reported
// confidence.
func ConfidenceMultiplier(c types.Confidence) float64 {
	switch c {
	case types.ConfidenceHigh:
		return 1.0
	case types.ConfidenceLow:
		return 0.3
	default:
		return 0.6
	}
}

// Kelly returns the recommended bankroll fraction for an opportunity:
// fractional Kelly scaled by confidence, clamped to [0, maxFraction].
// The raw Kelly stake for a binary contract is edge over the price of
// the losing side.
func Kelly(opp Opportunity, pMkt float64, conf types.Confidence, kellyFraction, maxFraction float64) float64 {
	if pMkt <= 0 || pMkt >= 1 || opp.Edge <= 0 {
		return 0
	}

	var raw float64
	if opp.Direction == types.DirectionYes {
		raw = opp.Edge / (1 - pMkt)
	} else {
		raw = opp.Edge / pMkt
	}

	frac := raw * kellyFraction * ConfidenceMultiplier(conf)
	if frac < 0 {
		return 0
	}
	if frac > maxFraction {
		return maxFraction
	}

	return frac
}

// Brier returns the Brier score of a probability against the realized
// outcome: (p - outcome)^2, lower is better.
func Brier(p float64, outcome bool) float64 {
	target := 0.0
	if outcome {
		target = 1.0
	}

	diff := p - target

	return diff * diff
}

// PnL returns the realized profit of a wager entered at YES price p,
// given the market's resolution. A losing wager returns -wager.
func PnL(wager, pMkt float64, dir types.Direction, outcomeYes bool) float64 {
	if pMkt <= 0 || pMkt >= 1 || wager <= 0 {
		return 0
	}

	won := (dir == types.DirectionYes) == outcomeYes
	if !won {
		return -wager
	}

	if dir == types.DirectionYes {
		return wager * (1 - pMkt) / pMkt
	}

	return wager * pMkt / (1 - pMkt)
}

// ShouldRecommend gates an opportunity on per-contract EV, tightened by
// confidence. Estimates in the weak band around a coin flip need a much
// larger EV to act on, since the model is telling us it barely knows.
func ShouldRecommend(ev, pAI float64, conf types.Confidence) bool {
	if pAI >= 0.42 && pAI <= 0.58 {
		return ev >= 0.12
	}

	switch conf {
	case types.ConfidenceHigh:
		return ev >= 0.05
	case types.ConfidenceMedium:
		return ev >= 0.08
	default:
		return false
	}
}

// ShouldRecommendFlat is the confidence-free variant used when no
// estimate confidence is available (post-scan sweeps re-checking old
// estimates against fresh prices).
func ShouldRecommendFlat(ev, minEV float64) bool {
	return ev >= minEV
}

// BetSize converts a bankroll fraction into a dollar bet, capped at
// maxBet.
func BetSize(fraction, bankroll, maxBet float64) float64 {
	bet := fraction * bankroll
	if bet > maxBet {
		bet = maxBet
	}
	if bet < 0 {
		return 0
	}

	return bet
}

// Contracts returns how many contracts a dollar bet buys at the entered
// side's price. The venue prices in whole cents clamped to [1, 99].
func Contracts(bet, pMkt float64, dir types.Direction) int {
	entry := pMkt
	if dir == types.DirectionNo {
		entry = 1 - pMkt
	}

	cents := EntryCents(entry)

	return int(math.Floor(bet * 100 / float64(cents)))
}

// EntryCents converts an entry-side probability to venue cents, clamped
// to the tradeable range [1, 99].
func EntryCents(entry float64) int {
	cents := int(math.Round(entry * 100))
	if cents < 1 {
		cents = 1
	}
	if cents > 99 {
		cents = 99
	}

	return cents
}
