package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

// The model may pause mid-turn to run web searches; cap how many times
// the conversation is resumed before giving up.
const maxContinuations = 5

// Result is a parsed, validated estimate with its token spend.
type Result struct {
	Probability      float64
	Confidence       types.Confidence
	Reasoning        string
	KeyEvidence      []string
	KeyUncertainties []string
	Model            string
	InputTokens      int
	OutputTokens     int
	CostUSD          float64
}

// EstimateOptions tune a single estimation call. Volume is used only to
// pick the model tier and never reaches the prompt.
type EstimateOptions struct {
	Volume                   float64
	HighValueVolumeThreshold float64
	Premium                  bool
	WebSearchMaxUses         int
}

// Estimate runs the blind-estimation pipeline for one market: build a
// price-free prompt, call the model with web search enabled, resume
// through pause_turn stops, and parse the structured response.
func (c *Client) Estimate(ctx context.Context, input *types.BlindInput, opts EstimateOptions) (*Result, error) {
	model := c.selectModel(opts.Volume, opts.HighValueVolumeThreshold, opts.Premium)

	req := c.estimateRequest(model, input, opts.WebSearchMaxUses)

	c.logger.Info("research-estimate-started",
		zap.String("question", truncate(input.Question, 80)),
		zap.String("model", model),
		zap.String("category", input.Category))

	var resp messagesResponse
	if err := c.post(ctx, messagesPath, req, &resp); err != nil {
		EstimateErrorsTotal.Inc()
		return nil, fmt.Errorf("estimate call: %w", err)
	}

	inputTokens := resp.Usage.InputTokens
	outputTokens := resp.Usage.OutputTokens

	for i := 0; resp.StopReason == "pause_turn"; i++ {
		if i >= maxContinuations {
			EstimateErrorsTotal.Inc()
			return nil, fmt.Errorf("estimate did not finish after %d continuations", maxContinuations)
		}

		c.logger.Debug("research-pause-turn", zap.Int("continuation", i+1))
		req.Messages = append(req.Messages, message{Role: "assistant", Content: resp.Content})

		resp = messagesResponse{}
		if err := c.post(ctx, messagesPath, req, &resp); err != nil {
			EstimateErrorsTotal.Inc()
			return nil, fmt.Errorf("estimate continuation: %w", err)
		}
		inputTokens += resp.Usage.InputTokens
		outputTokens += resp.Usage.OutputTokens
	}

	text := resp.text()
	if strings.TrimSpace(text) == "" {
		EstimateErrorsTotal.Inc()
		return nil, errors.New("model returned no text content")
	}

	result, err := parseEstimate(text)
	if err != nil {
		EstimateErrorsTotal.Inc()
		return nil, err
	}

	result.Model = model
	result.InputTokens = inputTokens
	result.OutputTokens = outputTokens
	result.CostUSD = costUSD(model, inputTokens, outputTokens, false)

	EstimatesTotal.WithLabelValues(model).Inc()
	TokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	TokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	CostUSDTotal.Add(result.CostUSD)

	c.logger.Info("research-estimate-done",
		zap.String("question", truncate(input.Question, 60)),
		zap.Float64("probability", result.Probability),
		zap.String("confidence", string(result.Confidence)),
		zap.Int("input-tokens", inputTokens),
		zap.Int("output-tokens", outputTokens),
		zap.Float64("cost-usd", result.CostUSD))

	return result, nil
}

func (c *Client) estimateRequest(model string, input *types.BlindInput, webSearchMaxUses int) *messagesRequest {
	system, _ := selectPrompts(input)
	temp := 0.3

	return &messagesRequest{
		Model:       model,
		MaxTokens:   estimateMaxToks,
		Temperature: &temp,
		System: []systemBlock{{
			Type:         "text",
			Text:         system,
			CacheControl: &cacheControl{Type: "ephemeral"},
		}},
		Tools: []toolSpec{{
			Type:    webSearchTool,
			Name:    "web_search",
			MaxUses: webSearchMaxUses,
		}},
		Messages: []message{textMessage("user", buildBlindPrompt(input))},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
