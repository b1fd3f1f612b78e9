// Package exchange is the REST client for a Kalshi-style prediction
// market venue: market discovery, resolution checks and portfolio
// operations, authenticated with per-request RSA-PSS signatures.
package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/kalshi-edge/pkg/httputil"
	"github.com/mselser95/kalshi-edge/pkg/types"
	"go.uber.org/zap"
)

// bearerTokenTTL is how long a legacy login token is trusted before
// re-authenticating.
const bearerTokenTTL = 25 * time.Minute

// Client talks to the venue API.
type Client struct {
	baseURL  string
	basePath string // path prefix included in signed messages
	http     *httputil.Client
	signer   *signer
	email    string
	password string
	logger   *zap.Logger

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

// Config holds venue client configuration. RSA credentials take
// precedence; email/password is the legacy fallback.
type Config struct {
	BaseURL        string
	APIKeyID       string
	PrivateKeyPath string
	PrivateKeyPEM  string
	Email          string
	Password       string
	HTTPClient     *httputil.Client
	Logger         *zap.Logger
}

// New creates a venue client. Returns ErrNoCredentials when neither
// auth method is configured.
func New(cfg *Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL:  cfg.BaseURL,
		basePath: parsed.Path,
		http:     cfg.HTTPClient,
		email:    cfg.Email,
		password: cfg.Password,
		logger:   cfg.Logger,
	}

	if cfg.APIKeyID != "" && (cfg.PrivateKeyPath != "" || cfg.PrivateKeyPEM != "") {
		s, err := newSigner(cfg.APIKeyID, cfg.PrivateKeyPath, cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("configure signer: %w", err)
		}
		c.signer = s
		cfg.Logger.Info("venue-client-configured", zap.String("auth", "rsa-pss"))
	} else if cfg.Email != "" && cfg.Password != "" {
		cfg.Logger.Info("venue-client-configured", zap.String("auth", "legacy-login"))
	} else {
		return nil, types.ErrNoCredentials
	}

	return c, nil
}

// do performs one authenticated API call and decodes the JSON response
// into out (when non-nil).
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	start := time.Now()
	err := c.doOnce(ctx, method, endpoint, query, body, out)
	RequestDurationSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	RequestsTotal.WithLabelValues(endpoint).Inc()
	if err != nil {
		RequestErrorsTotal.WithLabelValues(endpoint).Inc()
	}

	return err
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Signed path excludes the query string.
	err = c.applyAuth(ctx, req, method, c.basePath+endpoint)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return venueError(resp.StatusCode, respBody)
	}

	if out != nil {
		err = json.Unmarshal(respBody, out)
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) applyAuth(ctx context.Context, req *http.Request, method, signedPath string) error {
	if c.signer != nil {
		headers, err := c.signer.headers(method, signedPath, time.Now())
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return nil
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return nil
}

// ensureToken logs in via email/password, reusing the token while it
// has more than a minute left.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpires.Add(-time.Minute)) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", venueError(resp.StatusCode, body)
	}

	var result struct {
		Token string `json:"token"`
	}
	err = json.Unmarshal(body, &result)
	if err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("login returned empty token")
	}

	c.token = result.Token
	c.tokenExpires = time.Now().Add(bearerTokenTTL)
	c.logger.Info("venue-authenticated", zap.Time("token-expires", c.tokenExpires))

	return c.token, nil
}

func venueError(status int, body []byte) error {
	var wrapper struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &wrapper)

	msg := wrapper.Error.Message
	if msg == "" {
		msg = truncate(string(body), 200)
	}

	return &types.VenueError{
		StatusCode: status,
		Code:       wrapper.Error.Code,
		Message:    msg,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
