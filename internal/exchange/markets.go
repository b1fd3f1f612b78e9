package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/kalshi-edge/pkg/types"
	"go.uber.org/zap"
)

// maxPages caps pagination so a scan never walks the entire venue.
const maxPages = 50

// FetchOptions filter market discovery.
type FetchOptions struct {
	Limit      int
	MinVolume  float64
	Categories map[string]bool // allowed category set; empty allows all
	MinClose   time.Time
	MaxClose   time.Time
}

// FetchMarkets pages through open markets, filters out parlays and
// unpriced or off-category markets, and returns normalized results.
// The volume floor is waived for sports and economics: fresh game
// markets start at zero volume and indicator markets are thin but
// valuable.
func (c *Client) FetchMarkets(ctx context.Context, opts FetchOptions) ([]types.VenueMarket, error) {
	var (
		markets       []types.VenueMarket
		cursor        string
		pages         int
		parlaySkipped int
	)

	for len(markets) < opts.Limit && pages < maxPages {
		pages++

		query := url.Values{}
		query.Set("status", "open")
		query.Set("limit", "1000")
		if cursor != "" {
			query.Set("cursor", cursor)
		}
		if !opts.MinClose.IsZero() {
			query.Set("min_close_ts", strconv.FormatInt(opts.MinClose.Unix(), 10))
		}
		if !opts.MaxClose.IsZero() {
			query.Set("max_close_ts", strconv.FormatInt(opts.MaxClose.Unix(), 10))
		}

		var page marketsResponse
		err := c.do(ctx, "GET", "/markets", query, nil, &page)
		if err != nil {
			return nil, fmt.Errorf("fetch markets page %d: %w", pages, err)
		}

		if len(page.Markets) == 0 {
			break
		}

		for i := range page.Markets {
			raw := &page.Markets[i]

			if isParlay(raw.Title) {
				parlaySkipped++
				continue
			}

			sport := detectSport(raw)
			econ := ""
			if sport == "" {
				econ = detectEconomics(raw)
			}

			if len(opts.Categories) > 0 {
				switch {
				case sport != "":
					if !opts.Categories["sports"] {
						continue
					}
				case econ != "":
					if !opts.Categories["economics"] {
						continue
					}
				default:
					if !opts.Categories[strings.ToLower(raw.Category)] {
						continue
					}
				}
			}

			if sport == "" && econ == "" && raw.Volume < opts.MinVolume {
				continue
			}

			m := normalizeMarket(raw, sport, econ)
			if m == nil {
				continue
			}

			markets = append(markets, *m)
			if len(markets) >= opts.Limit {
				break
			}
		}

		cursor = page.Cursor
		if cursor == "" {
			break
		}
	}

	MarketsFetchedTotal.Add(float64(len(markets)))
	c.logger.Info("venue-markets-fetched",
		zap.Int("count", len(markets)),
		zap.Int("pages", pages),
		zap.Int("parlays-skipped", parlaySkipped))

	return markets, nil
}

func (c *Client) getMarket(ctx context.Context, ticker string) (*rawMarket, error) {
	var resp marketResponse
	err := c.do(ctx, "GET", "/markets/"+ticker, nil, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("get market %s: %w", ticker, err)
	}

	return &resp.Market, nil
}

// GetMarket fetches and normalizes a single market by ticker. Returns
// ErrNotFound when the market has no tradeable price.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*types.VenueMarket, error) {
	raw, err := c.getMarket(ctx, ticker)
	if err != nil {
		return nil, err
	}

	sport := detectSport(raw)
	econ := ""
	if sport == "" {
		econ = detectEconomics(raw)
	}

	m := normalizeMarket(raw, sport, econ)
	if m == nil {
		return nil, fmt.Errorf("market %s: %w", ticker, types.ErrNotFound)
	}

	return m, nil
}

// CheckResolution returns the venue's view of a market past its close.
func (c *Client) CheckResolution(ctx context.Context, ticker string) (types.ResolutionState, error) {
	market, err := c.getMarket(ctx, ticker)
	if err != nil {
		return types.ResolutionPending, err
	}

	switch strings.ToLower(market.Status) {
	case "finalized", "settled", "determined":
	case "cancelled", "canceled", "voided", "annulled":
		return types.ResolutionVoided, nil
	default:
		return types.ResolutionPending, nil
	}

	switch strings.ToLower(market.Result) {
	case "yes":
		return types.ResolutionResolvedYes, nil
	case "no":
		return types.ResolutionResolvedNo, nil
	default:
		// Finalized without a yes/no result means voided.
		return types.ResolutionVoided, nil
	}
}

// CheckResolutionsBatch checks many tickers in one pass. The venue has
// no bulk settlement endpoint, so each ticker is fetched individually;
// a per-ticker failure is logged and reported as pending so the rest of
// the batch still settles.
func (c *Client) CheckResolutionsBatch(ctx context.Context, tickers []string) (map[string]types.ResolutionState, error) {
	states := make(map[string]types.ResolutionState, len(tickers))
	for _, ticker := range tickers {
		state, err := c.CheckResolution(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return states, ctx.Err()
			}
			c.logger.Warn("resolution-check-failed",
				zap.String("ticker", ticker), zap.Error(err))
			states[ticker] = types.ResolutionPending
			continue
		}
		states[ticker] = state
	}

	return states, nil
}

// bestPriceCents picks the best available price from the fallback
// chain: last_price, bid/ask midpoint, yes_ask, yes_bid. Thin markets
// return 0 for every field, which signals "no valid price".
func bestPriceCents(raw *rawMarket) int {
	if raw.LastPrice > 0 {
		return raw.LastPrice
	}
	if raw.YesBid > 0 && raw.YesAsk > 0 {
		return (raw.YesBid + raw.YesAsk) / 2
	}
	if raw.YesAsk > 0 {
		return raw.YesAsk
	}
	if raw.YesBid > 0 {
		return raw.YesBid
	}

	return 0
}

// normalizeMarket maps a raw venue market to the internal
// representation. Returns nil for markets with no tradeable price.
func normalizeMarket(raw *rawMarket, sport, econ string) *types.VenueMarket {
	cents := bestPriceCents(raw)
	if cents <= 0 || cents >= 99 {
		return nil
	}

	category := strings.ToLower(raw.Category)
	if sport != "" {
		category = "sports"
	} else if econ != "" {
		category = "economics"
	}

	subtitle := raw.YesSubTitle
	if subtitle == "" {
		subtitle = raw.Subtitle
	}

	// Garbled multi-part titles read better as the subtitle.
	question := raw.Title
	if question != "" && strings.Count(question, ",") >= 2 && subtitle != "" {
		question = subtitle
	}
	if question == "" {
		question = subtitle
	}
	if question == "" {
		question = raw.EventTicker
	}

	closeTime := parseVenueTime(raw.CloseTime)
	if closeTime.IsZero() {
		closeTime = parseVenueTime(raw.ExpirationTime)
	}
	// Game markets close well after the game itself; the embedded game
	// date is the better research horizon when it is earlier.
	if gameDate := extractGameDate(raw.EventTicker); !gameDate.IsZero() {
		endOfGameDay := gameDate.Add(24 * time.Hour)
		if closeTime.IsZero() || endOfGameDay.Before(closeTime) {
			closeTime = endOfGameDay
		}
	}

	return &types.VenueMarket{
		Ticker:             raw.Ticker,
		EventTicker:        raw.EventTicker,
		Question:           question,
		Description:        raw.RulesPrimary,
		ResolutionCriteria: raw.RulesPrimary,
		Category:           category,
		SportType:          sport,
		PriceYes:           float64(cents) / 100,
		Volume:             raw.Volume,
		Liquidity:          raw.OpenInterest,
		CloseTime:          closeTime,
	}
}

func parseVenueTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
