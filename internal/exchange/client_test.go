package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mselser95/kalshi-edge/pkg/httputil"
	"github.com/mselser95/kalshi-edge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestVenue builds a client against a test server with a pre-seeded
// bearer token so no login round trip happens.
func newTestVenue(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	logger, _ := zap.NewDevelopment()

	return &Client{
		baseURL:      srv.URL,
		http:         httputil.New(&httputil.Config{Timeout: 2 * time.Second, Logger: logger}),
		email:        "test@example.com",
		password:     "pw",
		token:        "test-token",
		tokenExpires: time.Now().Add(time.Hour),
		logger:       logger,
	}
}

func TestFetchMarkets_PaginatesAndFilters(t *testing.T) {
	page1 := marketsResponse{
		Markets: []rawMarket{
			{Ticker: "PARLAY-1", Title: "yes Duke,yes UNLV", LastPrice: 50, Volume: 900000},
			{Ticker: "THIN-1", Title: "Niche market?", Category: "Politics", LastPrice: 50, Volume: 100},
			{Ticker: "POL-1", Title: "Election outcome?", Category: "Politics", LastPrice: 40, Volume: 80000},
		},
		Cursor: "next",
	}
	page2 := marketsResponse{
		Markets: []rawMarket{
			{Ticker: "KXNBAGAME-26FEB19DETNYK-DET", EventTicker: "KXNBAGAME-26FEB19DETNYK",
				Title: "Pistons win?", LastPrice: 55, Volume: 0},
			{Ticker: "UNPRICED", Title: "No price yet?", Category: "Politics", Volume: 90000},
		},
	}

	var pagesServed int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		require.Equal(t, "open", r.URL.Query().Get("status"))
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		pagesServed++
		if r.URL.Query().Get("cursor") == "next" {
			_ = json.NewEncoder(w).Encode(page2)
			return
		}
		_ = json.NewEncoder(w).Encode(page1)
	}))
	defer srv.Close()

	client := newTestVenue(t, srv)

	markets, err := client.FetchMarkets(context.Background(), FetchOptions{
		Limit:      10,
		MinVolume:  50000,
		Categories: map[string]bool{"politics": true, "sports": true},
	})
	require.NoError(t, err)
	require.Equal(t, 2, pagesServed)

	// Parlay, thin-volume politics and unpriced markets are dropped;
	// the zero-volume sports market survives the volume floor.
	require.Len(t, markets, 2)
	assert.Equal(t, "POL-1", markets[0].Ticker)
	assert.Equal(t, 0.40, markets[0].PriceYes)
	assert.Equal(t, "KXNBAGAME-26FEB19DETNYK-DET", markets[1].Ticker)
	assert.Equal(t, "sports", markets[1].Category)
}

func TestFetchMarkets_StopsAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := marketsResponse{Cursor: "more"}
		for i := 0; i < 5; i++ {
			resp.Markets = append(resp.Markets, rawMarket{
				Ticker: "M", Title: "Q?", Category: "Politics", LastPrice: 50, Volume: 99999,
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := newTestVenue(t, srv)

	markets, err := client.FetchMarkets(context.Background(), FetchOptions{
		Limit:      7,
		Categories: map[string]bool{"politics": true},
	})
	require.NoError(t, err)
	assert.Len(t, markets, 7)
}

func TestCheckResolution(t *testing.T) {
	tests := []struct {
		name   string
		status string
		result string
		want   types.ResolutionState
	}{
		{"still-open", "active", "", types.ResolutionPending},
		{"finalized-yes", "finalized", "yes", types.ResolutionResolvedYes},
		{"settled-no", "settled", "no", types.ResolutionResolvedNo},
		{"finalized-no-result", "finalized", "", types.ResolutionVoided},
		{"cancelled", "cancelled", "", types.ResolutionVoided},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/markets/TICK-1", r.URL.Path)
				_ = json.NewEncoder(w).Encode(marketResponse{
					Market: rawMarket{Ticker: "TICK-1", Status: tt.status, Result: tt.result},
				})
			}))
			defer srv.Close()

			state, err := newTestVenue(t, srv).CheckResolution(context.Background(), "TICK-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestCheckResolutionsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/WON-1":
			_ = json.NewEncoder(w).Encode(marketResponse{
				Market: rawMarket{Ticker: "WON-1", Status: "finalized", Result: "yes"},
			})
		case "/markets/OPEN-1":
			_ = json.NewEncoder(w).Encode(marketResponse{
				Market: rawMarket{Ticker: "OPEN-1", Status: "active"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"no such market"}}`))
		}
	}))
	defer srv.Close()

	states, err := newTestVenue(t, srv).CheckResolutionsBatch(context.Background(),
		[]string{"WON-1", "OPEN-1", "BROKEN-1"})
	require.NoError(t, err)

	require.Len(t, states, 3)
	assert.Equal(t, types.ResolutionResolvedYes, states["WON-1"])
	assert.Equal(t, types.ResolutionPending, states["OPEN-1"])
	// A failing ticker stays pending rather than sinking the batch.
	assert.Equal(t, types.ResolutionPending, states["BROKEN-1"])
}

func TestPlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/portfolio/orders", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "TICK-1", body["ticker"])
		assert.Equal(t, "buy", body["action"])
		assert.Equal(t, "no", body["side"])
		assert.Equal(t, "limit", body["type"])
		assert.EqualValues(t, 125, body["count"])
		assert.EqualValues(t, 40, body["yes_price"])
		assert.NotEmpty(t, body["client_order_id"])

		_ = json.NewEncoder(w).Encode(orderResponse{
			Order: Order{OrderID: "ord-1", Status: "resting"},
		})
	}))
	defer srv.Close()

	order, err := newTestVenue(t, srv).PlaceOrder(context.Background(), "TICK-1", "no", 125, 40)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.OrderID)
}

func TestGetBalance_CentsToDollars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(balanceResponse{Balance: 123456})
	}))
	defer srv.Close()

	balance, err := newTestVenue(t, srv).GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234.56, balance)
}

func TestDo_VenueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"insufficient_balance","message":"not enough funds"}}`))
	}))
	defer srv.Close()

	_, err := newTestVenue(t, srv).GetBalance(context.Background())
	require.Error(t, err)

	var venueErr *types.VenueError
	require.ErrorAs(t, err, &venueErr)
	assert.Equal(t, http.StatusForbidden, venueErr.StatusCode)
	assert.Equal(t, "insufficient_balance", venueErr.Code)
}

func TestFetchFills_Pagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			_ = json.NewEncoder(w).Encode(fillsResponse{
				Fills:  []Fill{{FillID: "f1", Ticker: "T", Side: "yes", Count: 10, YesPrice: 40}},
				Cursor: "c2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(fillsResponse{
			Fills: []Fill{{FillID: "f2", Ticker: "T", Side: "no", Count: 5, YesPrice: 60}},
		})
	}))
	defer srv.Close()

	fills, err := newTestVenue(t, srv).FetchFills(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, "f1", fills[0].FillID)
	assert.Equal(t, "f2", fills[1].FillID)
}

func TestNew_NoCredentials(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	_, err := New(&Config{
		BaseURL:    "https://example.com/trade-api/v2",
		HTTPClient: httputil.New(&httputil.Config{Logger: logger}),
		Logger:     logger,
	})
	assert.ErrorIs(t, err, types.ErrNoCredentials)
}
