// Package research calls the Anthropic messages API to produce
// price-blind probability estimates for market questions.
package research

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/pkg/cache"
	"github.com/mselser95/kalshi-edge/pkg/httputil"
)

const (
	apiVersion      = "2023-06-01"
	messagesPath    = "/v1/messages"
	batchesPath     = "/v1/messages/batches"
	estimateMaxToks = 4096
	webSearchTool   = "web_search_20250305"
)

// Client is an Anthropic messages API client specialized for blind
// market estimation.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	screenModel  string
	premiumModel string
	http         *httputil.Client
	screenCache  cache.Cache
	logger       *zap.Logger
}

// Config holds researcher configuration.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	ScreenModel  string
	PremiumModel string
	HTTPClient   *httputil.Client
	// ScreenCache memoizes screen verdicts by market ticker. Optional.
	ScreenCache cache.Cache
	Logger      *zap.Logger
}

// New creates a researcher client.
func New(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("anthropic api url is required")
	}
	if cfg.Model == "" || cfg.ScreenModel == "" {
		return nil, errors.New("estimate and screen models are required")
	}
	if cfg.HTTPClient == nil {
		return nil, errors.New("http client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	premium := cfg.PremiumModel
	if premium == "" {
		premium = cfg.Model
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		screenModel:  cfg.ScreenModel,
		premiumModel: premium,
		http:         cfg.HTTPClient,
		screenCache:  cfg.ScreenCache,
		logger:       cfg.Logger,
	}, nil
}

// selectModel escalates to the premium model for manually triggered or
// high-value estimates.
func (c *Client) selectModel(volume, highValueThreshold float64, premium bool) string {
	if premium {
		return c.premiumModel
	}
	if highValueThreshold > 0 && volume >= highValueThreshold {
		return c.premiumModel
	}

	return c.model
}

// post sends a JSON body to an API path and decodes the response.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return c.roundTrip(ctx, http.MethodPost, c.baseURL+path, payload, out)
}

// get fetches an absolute URL (used for batch result files) and returns
// the raw body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, data)
	}

	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
}

func apiError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("anthropic api %d (%s): %s", status, payload.Error.Type, payload.Error.Message)
	}

	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}

	return fmt.Errorf("anthropic api %d: %s", status, snippet)
}
