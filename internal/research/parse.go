package research

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseEstimate extracts the structured estimate from model text. It
// tolerates markdown code fences and prose around the JSON object.
func parseEstimate(text string) (*Result, error) {
	var jsonStr string
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		jsonStr = m[1]
	} else {
		first := strings.Index(text, "{")
		last := strings.LastIndex(text, "}")
		if first == -1 || last <= first {
			return nil, fmt.Errorf("no JSON object in model response: %.200s", text)
		}
		jsonStr = text[first : last+1]
	}

	var payload struct {
		Reasoning        string   `json:"reasoning"`
		Probability      *float64 `json:"probability"`
		Confidence       string   `json:"confidence"`
		KeyEvidence      []string `json:"key_evidence"`
		KeyUncertainties []string `json:"key_uncertainties"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("decode estimate: %w", err)
	}

	prob := 0.5
	if payload.Probability != nil && !math.IsNaN(*payload.Probability) && !math.IsInf(*payload.Probability, 0) {
		prob = *payload.Probability
	}
	prob = math.Max(0.01, math.Min(0.99, prob))

	return &Result{
		Probability:      prob,
		Confidence:       types.NormalizeConfidence(strings.ToLower(strings.TrimSpace(payload.Confidence))),
		Reasoning:        payload.Reasoning,
		KeyEvidence:      payload.KeyEvidence,
		KeyUncertainties: payload.KeyUncertainties,
	}, nil
}
