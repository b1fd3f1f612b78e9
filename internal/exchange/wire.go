package exchange

import "time"

// Raw venue API payloads. Prices are in cents (0-100).

type rawMarket struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	SeriesTicker   string  `json:"series_ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	YesSubTitle    string  `json:"yes_sub_title"`
	Category       string  `json:"category"`
	RulesPrimary   string  `json:"rules_primary"`
	Status         string  `json:"status"`
	Result         string  `json:"result"`
	LastPrice      int     `json:"last_price"`
	YesBid         int     `json:"yes_bid"`
	YesAsk         int     `json:"yes_ask"`
	Volume         float64 `json:"volume"`
	OpenInterest   float64 `json:"open_interest"`
	CloseTime      string  `json:"close_time"`
	ExpirationTime string  `json:"expiration_time"`
}

type marketsResponse struct {
	Markets []rawMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type marketResponse struct {
	Market rawMarket `json:"market"`
}

// Fill is an executed trade from the portfolio API.
type Fill struct {
	FillID      string    `json:"fill_id"`
	Ticker      string    `json:"ticker"`
	OrderID     string    `json:"order_id"`
	Side        string    `json:"side"`   // "yes" or "no"
	Action      string    `json:"action"` // "buy" or "sell"
	Count       int       `json:"count"`
	YesPrice    int       `json:"yes_price"`
	NoPrice     int       `json:"no_price"`
	FeeCost     int       `json:"fee_cost"` // cents
	CreatedTime time.Time `json:"created_time"`
}

type fillsResponse struct {
	Fills  []Fill `json:"fills"`
	Cursor string `json:"cursor"`
}

// Order is a venue order.
type Order struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Ticker        string `json:"ticker"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Status        string `json:"status"` // resting, canceled, executed
	Count         int    `json:"count"`
	YesPrice      int    `json:"yes_price"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor"`
}

type orderResponse struct {
	Order Order `json:"order"`
}

// Position is an open market position from the portfolio API.
type Position struct {
	Ticker         string `json:"ticker"`
	Position       int    `json:"position"` // signed contract count, + yes / - no
	MarketExposure int    `json:"market_exposure"`
	TotalTraded    int    `json:"total_traded"`
}

type positionsResponse struct {
	MarketPositions []Position `json:"market_positions"`
}

type balanceResponse struct {
	Balance int `json:"balance"` // cents
}
