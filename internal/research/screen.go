package research

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

const screenCacheTTL = 24 * time.Hour

// Screen asks the cheap model whether a market is worth full research.
// Verdicts are cached by ticker. Any failure defaults to true so a flaky
// screen never hides a market from the pipeline.
func (c *Client) Screen(ctx context.Context, ticker string, input *types.BlindInput) bool {
	if c.screenCache != nil {
		if v, ok := c.screenCache.Get(screenKey(ticker)); ok {
			if verdict, ok := v.(bool); ok {
				ScreensTotal.WithLabelValues("cached").Inc()
				return verdict
			}
		}
	}

	verdict := c.screenOnce(ctx, input)

	if c.screenCache != nil {
		c.screenCache.Set(screenKey(ticker), verdict, screenCacheTTL)
	}

	return verdict
}

func (c *Client) screenOnce(ctx context.Context, input *types.BlindInput) bool {
	temp := 0.0
	req := &messagesRequest{
		Model:       c.screenModel,
		MaxTokens:   10,
		Temperature: &temp,
		Messages:    []message{textMessage("user", buildScreenPrompt(input))},
	}

	var resp messagesResponse
	if err := c.post(ctx, messagesPath, req, &resp); err != nil {
		c.logger.Debug("research-screen-failed-open", zap.Error(err))
		ScreensTotal.WithLabelValues("error").Inc()
		return true
	}

	TokensTotal.WithLabelValues(c.screenModel, "input").Add(float64(resp.Usage.InputTokens))
	TokensTotal.WithLabelValues(c.screenModel, "output").Add(float64(resp.Usage.OutputTokens))
	CostUSDTotal.Add(costUSD(c.screenModel, resp.Usage.InputTokens, resp.Usage.OutputTokens, false))

	answer := strings.ToUpper(strings.TrimSpace(resp.text()))
	verdict := strings.HasPrefix(answer, "YES")

	if verdict {
		ScreensTotal.WithLabelValues("pass").Inc()
	} else {
		ScreensTotal.WithLabelValues("reject").Inc()
	}

	return verdict
}

func screenKey(ticker string) string {
	return "screen:" + ticker
}
