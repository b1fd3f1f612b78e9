package types

// CalibrationStats summarizes resolved estimates for prompt feedback.
// AvgMissDistance and AvgHitDistance measure how far from a coin flip
// the model was when it missed versus when it hit, which exposes
// systematic overconfidence.
type CalibrationStats struct {
	TotalResolved   int
	HitRate         float64
	AvgBrier        float64
	AvgMissDistance float64
	AvgHitDistance  float64
}
