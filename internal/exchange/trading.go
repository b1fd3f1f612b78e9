package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetBalance returns the available account balance in dollars.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	err := c.do(ctx, "GET", "/portfolio/balance", nil, nil, &resp)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return float64(resp.Balance) / 100, nil
}

// FetchFills pages through executed fills, newest first, up to limit.
func (c *Client) FetchFills(ctx context.Context, limit int) ([]Fill, error) {
	var (
		fills  []Fill
		cursor string
	)

	for len(fills) < limit {
		pageSize := limit - len(fills)
		if pageSize > 100 {
			pageSize = 100
		}

		query := url.Values{}
		query.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page fillsResponse
		err := c.do(ctx, "GET", "/portfolio/fills", query, nil, &page)
		if err != nil {
			return nil, fmt.Errorf("fetch fills: %w", err)
		}

		if len(page.Fills) == 0 {
			break
		}
		fills = append(fills, page.Fills...)

		cursor = page.Cursor
		if cursor == "" {
			break
		}
	}

	c.logger.Debug("venue-fills-fetched", zap.Int("count", len(fills)))

	return fills, nil
}

// FetchPositions returns current open market positions.
func (c *Client) FetchPositions(ctx context.Context) ([]Position, error) {
	var resp positionsResponse
	err := c.do(ctx, "GET", "/portfolio/positions", nil, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}

	return resp.MarketPositions, nil
}

// FetchOrders pages through orders, optionally filtered by status
// (resting, canceled, executed).
func (c *Client) FetchOrders(ctx context.Context, status string, limit int) ([]Order, error) {
	var (
		orders []Order
		cursor string
	)

	for {
		query := url.Values{}
		pageSize := limit
		if pageSize > 200 {
			pageSize = 200
		}
		query.Set("limit", strconv.Itoa(pageSize))
		if status != "" {
			query.Set("status", status)
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page ordersResponse
		err := c.do(ctx, "GET", "/portfolio/orders", query, nil, &page)
		if err != nil {
			return nil, fmt.Errorf("fetch orders: %w", err)
		}

		orders = append(orders, page.Orders...)

		cursor = page.Cursor
		if cursor == "" || len(page.Orders) == 0 || len(orders) >= limit {
			break
		}
	}

	return orders, nil
}

// PlaceOrder submits a limit buy for count contracts. Side is "yes" or
// "no"; yesPriceCents is the YES price in cents regardless of side.
func (c *Client) PlaceOrder(ctx context.Context, ticker, side string, count, yesPriceCents int) (*Order, error) {
	body := map[string]interface{}{
		"ticker":          ticker,
		"action":          "buy",
		"side":            side,
		"count":           count,
		"type":            "limit",
		"yes_price":       yesPriceCents,
		"client_order_id": uuid.NewString(),
	}

	var resp orderResponse
	err := c.do(ctx, "POST", "/portfolio/orders", nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	OrdersPlacedTotal.Inc()
	c.logger.Info("venue-order-placed",
		zap.String("ticker", ticker),
		zap.String("side", side),
		zap.Int("count", count),
		zap.Int("yes-price-cents", yesPriceCents),
		zap.String("status", resp.Order.Status))

	return &resp.Order, nil
}

// CancelOrder cancels a resting order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	err := c.do(ctx, "DELETE", "/portfolio/orders/"+orderID, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	c.logger.Info("venue-order-canceled", zap.String("order-id", orderID))

	return nil
}
