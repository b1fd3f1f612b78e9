package scanner

import (
	"fmt"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

// minResolutionsForFeedback is how many resolved markets are needed
// before past performance is statistically worth feeding back.
const minResolutionsForFeedback = 10

// calibrationFeedback renders resolved-outcome statistics as a short
// text block for estimation prompts. It is built exclusively from
// outcomes, never prices, so it cannot leak market data into a blind
// prompt. Returns "" until enough resolutions exist.
func calibrationFeedback(stats *types.CalibrationStats) string {
	if stats == nil || stats.TotalResolved < minResolutionsForFeedback {
		return ""
	}

	text := fmt.Sprintf(
		"- %d resolved markets, %.0f%% of your calls were on the right side\n"+
			"- Average Brier score %.3f (lower is better; 0.25 is chance)\n",
		stats.TotalResolved, stats.HitRate*100, stats.AvgBrier)

	// Misses further from a coin flip than hits means the model was
	// boldest precisely when it was wrong.
	switch {
	case stats.AvgMissDistance > stats.AvgHitDistance+0.05:
		text += fmt.Sprintf(
			"- Your wrong calls were more extreme (avg %.2f from 0.50) than your right ones (%.2f): you are overconfident, pull estimates toward 0.50\n",
			stats.AvgMissDistance, stats.AvgHitDistance)
	case stats.AvgHitDistance > stats.AvgMissDistance+0.05:
		text += "- Your confident calls have been your best ones: do not hedge toward 0.50 when the evidence is strong\n"
	}

	return text
}
