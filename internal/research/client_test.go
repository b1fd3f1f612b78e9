package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/pkg/httputil"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// mapCache is a trivial cache.Cache for tests.
type mapCache struct {
	mu sync.Mutex
	m  map[string]interface{}
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string]interface{})} }

func (c *mapCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Set(key string, value interface{}, _ time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return true
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

func (c *mapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]interface{})
}

func (c *mapCache) Close() {}

func newTestResearcher(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	client, err := New(&Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "claude-sonnet-4-20250514",
		ScreenModel: "claude-3-5-haiku-20241022",
		HTTPClient:  httputil.New(&httputil.Config{Timeout: 2 * time.Second, MaxAttempts: 1, Logger: logger}),
		ScreenCache: newMapCache(),
		Logger:      logger,
	})
	require.NoError(t, err)

	return client
}

func textResponse(stopReason, text string, in, out int) map[string]interface{} {
	return map[string]interface{}{
		"content":     []map[string]interface{}{{"type": "text", "text": text}},
		"stop_reason": stopReason,
		"usage":       map[string]int{"input_tokens": in, "output_tokens": out},
	}
}

func TestEstimate_ParsesAndPricesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-sonnet-4-20250514", req["model"])
		assert.NotEmpty(t, req["tools"], "web search tool must be attached")

		_ = json.NewEncoder(w).Encode(textResponse("end_turn",
			"```json\n{\"reasoning\":\"r\",\"probability\":0.7,\"confidence\":\"high\"}\n```",
			1000, 500))
	}))
	defer srv.Close()

	result, err := newTestResearcher(t, srv).Estimate(context.Background(), &types.BlindInput{
		Question: "Will it happen?",
		Category: "politics",
	}, EstimateOptions{WebSearchMaxUses: 5})
	require.NoError(t, err)

	assert.InDelta(t, 0.7, result.Probability, 1e-9)
	assert.Equal(t, types.ConfidenceHigh, result.Confidence)
	assert.Equal(t, "claude-sonnet-4-20250514", result.Model)
	assert.Equal(t, 1000, result.InputTokens)
	assert.Equal(t, 500, result.OutputTokens)
	assert.InDelta(t, 0.0105, result.CostUSD, 1e-9)
}

func TestEstimate_PauseTurnContinuation(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		var req struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if calls == 1 {
			require.Len(t, req.Messages, 1)
			_ = json.NewEncoder(w).Encode(textResponse("pause_turn", "searching", 200, 50))
			return
		}

		// The assistant's paused turn must come back as context.
		require.Len(t, req.Messages, 2)
		require.Equal(t, "assistant", req.Messages[1].Role)
		_ = json.NewEncoder(w).Encode(textResponse("end_turn",
			`{"probability":0.55,"confidence":"medium"}`, 300, 100))
	}))
	defer srv.Close()

	result, err := newTestResearcher(t, srv).Estimate(context.Background(),
		&types.BlindInput{Question: "Q?"}, EstimateOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.InDelta(t, 0.55, result.Probability, 1e-9)
	// Token usage accumulates across continuations.
	assert.Equal(t, 500, result.InputTokens)
	assert.Equal(t, 150, result.OutputTokens)
}

func TestEstimate_PauseTurnLoopBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(textResponse("pause_turn", "still searching", 10, 10))
	}))
	defer srv.Close()

	_, err := newTestResearcher(t, srv).Estimate(context.Background(),
		&types.BlindInput{Question: "Q?"}, EstimateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "continuations")
}

func TestSelectModel(t *testing.T) {
	logger := zap.NewNop()
	client, err := New(&Config{
		BaseURL:      "https://api.example.com",
		APIKey:       "k",
		Model:        "claude-sonnet-4-20250514",
		ScreenModel:  "claude-3-5-haiku-20241022",
		PremiumModel: "claude-opus-4-20250514",
		HTTPClient:   httputil.New(&httputil.Config{Logger: logger}),
		Logger:       logger,
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		volume    float64
		threshold float64
		premium   bool
		want      string
	}{
		{"default", 50000, 100000, false, "claude-sonnet-4-20250514"},
		{"premium-override", 0, 100000, true, "claude-opus-4-20250514"},
		{"high-volume-escalates", 150000, 100000, false, "claude-opus-4-20250514"},
		{"zero-threshold-never-escalates", 150000, 0, false, "claude-sonnet-4-20250514"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.selectModel(tt.volume, tt.threshold, tt.premium))
		})
	}
}

func TestScreen_VerdictAndCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(textResponse("end_turn", "NO", 100, 2))
	}))
	defer srv.Close()

	client := newTestResearcher(t, srv)
	input := &types.BlindInput{Question: "Will Player X score 30+ points?"}

	assert.False(t, client.Screen(context.Background(), "TICK-1", input))
	assert.False(t, client.Screen(context.Background(), "TICK-1", input))
	assert.Equal(t, 1, calls, "second screen must come from cache")
}

func TestScreen_FailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"nope"}}`))
	}))
	defer srv.Close()

	verdict := newTestResearcher(t, srv).Screen(context.Background(), "TICK-2",
		&types.BlindInput{Question: "Q?"})
	assert.True(t, verdict, "screen errors must not hide markets")
}

func TestEstimateBatch(t *testing.T) {
	resultsJSONL := `{"custom_id":"m1","result":{"type":"succeeded","message":{"content":[{"type":"text","text":"{\"probability\":0.8,\"confidence\":\"high\"}"}],"stop_reason":"end_turn","usage":{"input_tokens":1000,"output_tokens":500}}}}
{"custom_id":"m2","result":{"type":"errored"}}
`

	var mux http.ServeMux
	mux.HandleFunc("/v1/messages/batches", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Requests []struct {
				CustomID string `json:"custom_id"`
			} `json:"requests"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 2)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "batch-1", "processing_status": "in_progress",
		})
	})

	srv := httptest.NewServer(&mux)
	defer srv.Close()

	mux.HandleFunc("/v1/messages/batches/batch-1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                "batch-1",
			"processing_status": "ended",
			"request_counts":    map[string]int{"succeeded": 1, "errored": 1},
			"results_url":       srv.URL + "/results",
		})
	})
	mux.HandleFunc("/results", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsJSONL))
	})

	results, err := newTestResearcher(t, srv).EstimateBatch(context.Background(),
		[]BatchItem{
			{CustomID: "m1", Input: &types.BlindInput{Question: "Q1?"}},
			{CustomID: "m2", Input: &types.BlindInput{Question: "Q2?"}},
		},
		BatchOptions{PollInterval: 10 * time.Millisecond, Timeout: 5 * time.Second})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.InDelta(t, 0.8, results["m1"].Probability, 1e-9)
	// Batch traffic is billed at half the synchronous token rates.
	assert.InDelta(t, 0.00525, results["m1"].CostUSD, 1e-9)
}

func TestEstimateBatch_TimeoutCancels(t *testing.T) {
	var canceled bool

	var mux http.ServeMux
	mux.HandleFunc("/v1/messages/batches", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "batch-2", "processing_status": "in_progress",
		})
	})
	mux.HandleFunc("/v1/messages/batches/batch-2", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "batch-2", "processing_status": "in_progress",
		})
	})
	mux.HandleFunc("/v1/messages/batches/batch-2/cancel", func(w http.ResponseWriter, _ *http.Request) {
		canceled = true
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "batch-2"})
	})

	srv := httptest.NewServer(&mux)
	defer srv.Close()

	results, err := newTestResearcher(t, srv).EstimateBatch(context.Background(),
		[]BatchItem{{CustomID: "m1", Input: &types.BlindInput{Question: "Q?"}}},
		BatchOptions{PollInterval: 10 * time.Millisecond, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.Empty(t, results, "timed-out batch returns empty so the caller can fall back")
	assert.True(t, canceled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(&Config{BaseURL: "https://x", Model: "m", ScreenModel: "s"})
	assert.Error(t, err)

	_, err = New(&Config{APIKey: "k", Model: "m", ScreenModel: "s"})
	assert.Error(t, err)
}
