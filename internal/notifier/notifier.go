// Package notifier delivers pipeline events over email and Slack-style
// webhooks. Both channels are optional; a send failure on one channel
// never blocks the other and is logged rather than propagated.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/pkg/httputil"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// Client sends notifications through the configured channels.
type Client struct {
	emailURL     string
	emailKey     string
	emailFrom    string
	emailTo      string
	slackWebhook string
	http         *httputil.Client
	logger       *zap.Logger
}

// Config holds notifier configuration. Leave EmailAPIKey or
// SlackWebhookURL empty to disable that channel.
type Config struct {
	EmailAPIURL     string
	EmailAPIKey     string
	EmailFrom       string
	EmailTo         string
	SlackWebhookURL string
	HTTPClient      *httputil.Client
	Logger          *zap.Logger
}

// New creates a notifier client.
func New(cfg *Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		emailURL:     cfg.EmailAPIURL,
		emailKey:     cfg.EmailAPIKey,
		emailFrom:    cfg.EmailFrom,
		emailTo:      cfg.EmailTo,
		slackWebhook: cfg.SlackWebhookURL,
		http:         cfg.HTTPClient,
		logger:       logger,
	}
}

// Enabled reports whether at least one channel is configured.
func (c *Client) Enabled() bool {
	return c.emailConfigured() || c.slackWebhook != ""
}

func (c *Client) emailConfigured() bool {
	return c.emailKey != "" && c.emailFrom != "" && c.emailTo != ""
}

// send pushes the same message to every configured channel.
func (c *Client) send(ctx context.Context, subject, body string) {
	if c.emailConfigured() {
		if err := c.sendEmail(ctx, subject, body); err != nil {
			NotificationsTotal.WithLabelValues("email", "error").Inc()
			c.logger.Warn("notify-email-failed", zap.String("subject", subject), zap.Error(err))
		} else {
			NotificationsTotal.WithLabelValues("email", "ok").Inc()
		}
	}

	if c.slackWebhook != "" {
		if err := c.sendSlack(ctx, subject+"\n"+body); err != nil {
			NotificationsTotal.WithLabelValues("slack", "error").Inc()
			c.logger.Warn("notify-slack-failed", zap.String("subject", subject), zap.Error(err))
		} else {
			NotificationsTotal.WithLabelValues("slack", "ok").Inc()
		}
	}
}

func (c *Client) sendEmail(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    c.emailFrom,
		"to":      []string{c.emailTo},
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.emailURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.emailKey)
	req.Header.Set("Content-Type", "application/json")

	return c.post(req)
}

func (c *Client) sendSlack(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.slackWebhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.post(req)
}

func (c *Client) post(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}

	return nil
}

// ScanReport summarizes a completed scan for notification.
type ScanReport struct {
	ScanID       string
	MarketsFound int
	ScreenedOut  int
	Estimated    int
	Recommended  int
	TradesPlaced int
	Errors       int
	CostUSD      float64
	Duration     time.Duration
}

// SendScanSummary notifies the outcome of a full scan.
func (c *Client) SendScanSummary(ctx context.Context, r *ScanReport) {
	body := fmt.Sprintf(
		"Scan %s finished in %s.\n\n"+
			"Markets found:   %d\n"+
			"Screened out:    %d\n"+
			"Estimated:       %d\n"+
			"Recommended:     %d\n"+
			"Trades placed:   %d\n"+
			"Errors:          %d\n"+
			"Research spend:  $%.2f\n",
		r.ScanID, r.Duration.Round(time.Second),
		r.MarketsFound, r.ScreenedOut, r.Estimated,
		r.Recommended, r.TradesPlaced, r.Errors, r.CostUSD)

	c.send(ctx, fmt.Sprintf("Scan complete: %d recommendations", r.Recommended), body)
}

// RecommendationReport describes a new betting recommendation.
type RecommendationReport struct {
	Question      string
	Direction     types.Direction
	MarketPrice   float64
	AIProbability float64
	EV            float64
	Confidence    types.Confidence
	Reasoning     string
	Sweep         bool
}

// SendRecommendation alerts on a high-EV recommendation.
func (c *Client) SendRecommendation(ctx context.Context, r *RecommendationReport) {
	kind := "New recommendation"
	if r.Sweep {
		kind = "Still-live recommendation"
	}

	body := fmt.Sprintf(
		"%s\n\n"+
			"Bet %s at %.0f¢ (model: %.0f%%, EV %.2f per contract, confidence %s)\n\n%s\n",
		r.Question, r.Direction, r.MarketPrice*100,
		r.AIProbability*100, r.EV, r.Confidence, r.Reasoning)

	c.send(ctx, fmt.Sprintf("%s: %s %.0f¢ (EV %.2f)", kind, r.Direction, r.MarketPrice*100, r.EV), body)
}

// ResolutionReport describes a market resolution.
type ResolutionReport struct {
	Question string
	Outcome  string // "yes", "no", "voided"
	PnL      float64
	HadTrade bool
}

// SendResolution notifies a resolved or voided market.
func (c *Client) SendResolution(ctx context.Context, r *ResolutionReport) {
	body := fmt.Sprintf("%s\n\nResolved %s.", r.Question, r.Outcome)
	if r.HadTrade {
		body += fmt.Sprintf(" Realized PnL: $%.2f.", r.PnL)
	}

	c.send(ctx, fmt.Sprintf("Market resolved %s", r.Outcome), body)
}

// DigestReport is the daily performance digest.
type DigestReport struct {
	Aggregate    *types.PerformanceAggregate
	ActiveRecs   int
	OpenExposure float64
	CostToday    float64
}

// SendDigest sends the daily digest.
func (c *Client) SendDigest(ctx context.Context, r *DigestReport) {
	body := fmt.Sprintf(
		"Active recommendations: %d\nOpen exposure: $%.2f\nResearch spend today: $%.2f\n",
		r.ActiveRecs, r.OpenExposure, r.CostToday)

	if a := r.Aggregate; a != nil && a.TotalResolved > 0 {
		body += fmt.Sprintf(
			"\nResolved markets: %d\nHit rate: %.0f%%\nAvg Brier: %.3f\nTotal PnL: $%.2f\n",
			a.TotalResolved, a.HitRate*100, a.AvgBrier, a.TotalPnL)
	}

	c.send(ctx, "Daily digest", body)
}

// SendFailure alerts on a pipeline failure.
func (c *Client) SendFailure(ctx context.Context, subject, detail string) {
	c.send(ctx, "FAILURE: "+subject, detail)
}

// SendTest sends a test notification to verify channel configuration.
func (c *Client) SendTest(ctx context.Context) {
	c.send(ctx, "Test notification", "Notification channels are working.")
}
