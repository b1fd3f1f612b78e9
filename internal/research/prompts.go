package research

import (
	"fmt"
	"strings"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

// The estimation prompts deliberately carry no market data. The only
// fields that ever reach the model are question, resolution criteria,
// close date, category, sport type, and outcome-derived calibration
// feedback.

const systemPrompt = `You are a forecaster producing calibrated probability estimates for prediction market questions. You are never shown market prices and you must not search for betting odds or market prices; estimate from evidence and base rates alone.

Use web search when current information would change your answer. Reason step by step, then commit to a single probability.

Respond with exactly one JSON object:
{
  "reasoning": "concise summary of your analysis",
  "probability": 0.XX,
  "confidence": "high|medium|low",
  "key_evidence": ["fact 1", "fact 2"],
  "key_uncertainties": ["unknown 1", "unknown 2"]
}

Probability must be between 0.01 and 0.99. Confidence reflects the quality of available evidence, not how extreme the probability is.`

const systemPromptSports = `You are a sports forecaster producing calibrated win probability estimates. You are never shown betting lines or market prices and you must not search for odds, spreads, or moneylines; estimate from team and player information alone.

Use web search for current form, injuries, lineups, and head-to-head history. Weigh recent performance over season-long averages. Reason step by step, then commit to a single probability.

Respond with exactly one JSON object:
{
  "reasoning": "concise summary of your analysis",
  "probability": 0.XX,
  "confidence": "high|medium|low",
  "key_evidence": ["fact 1", "fact 2"],
  "key_uncertainties": ["unknown 1", "unknown 2"]
}

Probability must be between 0.01 and 0.99. Confidence reflects the quality of available evidence, not how extreme the probability is.`

const researchTemplate = `QUESTION: %s

RESOLUTION CRITERIA: %s

CLOSE DATE: %s

CATEGORY: %s

Research this question and estimate the probability that it resolves YES.`

const researchTemplateSports = `QUESTION: %s

RESOLUTION CRITERIA: %s

CLOSE DATE: %s

SPORT: %s

%sResearch this matchup and estimate the probability that the question resolves YES.`

// selectPrompts returns the system prompt and whether the sports
// template applies for the given input.
func selectPrompts(input *types.BlindInput) (string, bool) {
	if strings.EqualFold(input.Category, "sports") {
		return systemPromptSports, true
	}

	return systemPrompt, false
}

// buildBlindPrompt formats the user message from non-price fields only.
// This is the enforcement point for blind estimation.
func buildBlindPrompt(input *types.BlindInput) string {
	criteria := input.ResolutionCriteria
	if criteria == "" {
		criteria = "Not specified"
	}
	closeDate := input.CloseDate
	if closeDate == "" {
		closeDate = "Not specified"
	}

	if _, sports := selectPrompts(input); sports {
		sport := input.SportType
		if sport == "" {
			sport = "Unknown"
		}

		var calibration string
		if input.CalibrationFeedback != "" {
			calibration = "YOUR HISTORICAL PERFORMANCE (use this to calibrate):\n" +
				input.CalibrationFeedback + "\n\n"
		}

		return fmt.Sprintf(researchTemplateSports,
			input.Question, criteria, closeDate, sport, calibration)
	}

	category := input.Category
	if category == "" {
		category = "General"
	}

	return fmt.Sprintf(researchTemplate,
		input.Question, criteria, closeDate, category)
}

// buildScreenPrompt formats the cheap-model triage question.
func buildScreenPrompt(input *types.BlindInput) string {
	closeDate := input.CloseDate
	if closeDate == "" {
		closeDate = "Unknown"
	}
	sport := input.SportType
	if sport == "" {
		sport = "Unknown"
	}

	return "You are a prediction market analyst. Quickly decide if this market " +
		"is worth spending time researching.\n\n" +
		"GOOD markets (say YES):\n" +
		"- Game outcomes: 'Will Team X beat Team Y?'\n" +
		"- Selection/participation: 'Will Player X be selected for Event Y?'\n" +
		"- Awards and voting: MVP, All-Star, draft picks\n" +
		"- Any clear yes/no question with publicly available data to research\n" +
		"- Major leagues: NBA, NFL, MLB, NHL, college, soccer, UFC, tennis\n\n" +
		"BAD markets (say NO):\n" +
		"- Individual stat lines: 'Will Player X score 30+ points?'\n" +
		"- Over/under on specific player stats (points, rebounds, assists)\n" +
		"- Markets with no public data or unclear resolution criteria\n" +
		"- Already-decided events\n\n" +
		"MARKET: " + input.Question + "\n" +
		"CLOSE DATE: " + closeDate + "\n" +
		"SPORT: " + sport + "\n\n" +
		"Reply with ONLY 'YES' or 'NO' (one word)."
}
