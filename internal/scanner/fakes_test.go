package scanner

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mselser95/kalshi-edge/internal/exchange"
	"github.com/mselser95/kalshi-edge/internal/notifier"
	"github.com/mselser95/kalshi-edge/internal/research"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int
	markets   map[string]*types.Market // by id
	byVenueID map[string]string        // venue ticker -> id
	snapshots []types.Snapshot
	estimates []types.Estimate
	recs      []types.Recommendation
	trades    []types.Trade
	perf      []types.PerformanceRecord
	costs     []types.ResearchCost
	syncLogs  []types.SyncResult
	kv        map[string]string
	calStats  *types.CalibrationStats
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		markets:   make(map[string]*types.Market),
		byVenueID: make(map[string]string),
		kv:        make(map[string]string),
	}
}

func (f *fakeStore) id() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) UpsertMarket(_ context.Context, m *types.Market) (*types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.byVenueID[m.VenueID]; ok {
		existing := f.markets[id]
		existing.Question = m.Question
		existing.CloseTime = m.CloseTime
		out := *existing
		return &out, nil
	}

	stored := *m
	stored.ID = f.id()
	if stored.Status == "" {
		stored.Status = types.MarketActive
	}
	f.markets[stored.ID] = &stored
	f.byVenueID[stored.VenueID] = stored.ID
	out := stored

	return &out, nil
}

func (f *fakeStore) MarketByID(_ context.Context, id string) (*types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.markets[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	out := *m

	return &out, nil
}

func (f *fakeStore) MarketByVenueID(_ context.Context, _ string, venueID string) (*types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byVenueID[venueID]
	if !ok {
		return nil, types.ErrNotFound
	}
	out := *f.markets[id]

	return &out, nil
}

func (f *fakeStore) MarketsDueResolution(_ context.Context, now time.Time) ([]types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []types.Market
	for _, m := range f.markets {
		if m.Status != types.MarketResolved && m.CloseTime.Before(now) {
			due = append(due, *m)
		}
	}

	return due, nil
}

func (f *fakeStore) CloseMarket(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[id].Status = types.MarketClosed
	return nil
}

func (f *fakeStore) ResolveMarket(_ context.Context, id string, outcome bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[id].Status = types.MarketResolved
	f.markets[id].Outcome = &outcome
	return nil
}

func (f *fakeStore) InsertSnapshot(_ context.Context, s *types.Snapshot) (*types.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *s
	stored.ID = f.id()
	if stored.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now()
	}
	f.snapshots = append(f.snapshots, stored)
	out := stored

	return &out, nil
}

func (f *fakeStore) LatestSnapshot(_ context.Context, marketID string) (*types.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.snapshots) - 1; i >= 0; i-- {
		if f.snapshots[i].MarketID == marketID {
			out := f.snapshots[i]
			return &out, nil
		}
	}

	return nil, types.ErrNotFound
}

func (f *fakeStore) SnapshotBefore(_ context.Context, marketID string, t time.Time) (*types.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.snapshots) - 1; i >= 0; i-- {
		if f.snapshots[i].MarketID == marketID && f.snapshots[i].CapturedAt.Before(t) {
			out := f.snapshots[i]
			return &out, nil
		}
	}

	return nil, types.ErrNotFound
}

func (f *fakeStore) LastSnapshotTime(context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.snapshots) == 0 {
		return time.Time{}, types.ErrNotFound
	}

	return f.snapshots[len(f.snapshots)-1].CapturedAt, nil
}

func (f *fakeStore) InsertEstimate(_ context.Context, e *types.Estimate) (*types.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *e
	stored.ID = f.id()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	f.estimates = append(f.estimates, stored)
	out := stored

	return &out, nil
}

func (f *fakeStore) RecentEstimate(_ context.Context, marketID string, maxAge time.Duration) (*types.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for i := len(f.estimates) - 1; i >= 0; i-- {
		e := f.estimates[i]
		if e.MarketID == marketID && e.CreatedAt.After(cutoff) {
			out := e
			return &out, nil
		}
	}

	return nil, types.ErrNotFound
}

func (f *fakeStore) InsertRecommendation(_ context.Context, r *types.Recommendation) (*types.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.recs {
		if f.recs[i].MarketID == r.MarketID && f.recs[i].Status == types.RecommendationActive {
			f.recs[i].Status = types.RecommendationExpired
		}
	}

	stored := *r
	stored.ID = f.id()
	stored.Status = types.RecommendationActive
	f.recs = append(f.recs, stored)
	out := stored

	return &out, nil
}

func (f *fakeStore) ActiveRecommendations(context.Context) ([]types.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.Recommendation
	for _, r := range f.recs {
		if r.Status == types.RecommendationActive {
			out = append(out, r)
		}
	}

	return out, nil
}

func (f *fakeStore) UntradedActiveRecommendations(context.Context) ([]types.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.Recommendation
	for _, r := range f.recs {
		if r.Status != types.RecommendationActive {
			continue
		}
		traded := false
		for _, t := range f.trades {
			if t.MarketID == r.MarketID {
				traded = true
				break
			}
		}
		if !traded {
			out = append(out, r)
		}
	}

	return out, nil
}

func (f *fakeStore) LatestRecommendationForMarket(_ context.Context, marketID string) (*types.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.recs) - 1; i >= 0; i-- {
		if f.recs[i].MarketID == marketID {
			out := f.recs[i]
			return &out, nil
		}
	}

	return nil, types.ErrNotFound
}

func (f *fakeStore) ExpireRecommendationsForMarket(_ context.Context, marketID string) (int64, error) {
	return f.setRecStatus(marketID, types.RecommendationExpired), nil
}

func (f *fakeStore) ResolveRecommendationsForMarket(_ context.Context, marketID string) (int64, error) {
	return f.setRecStatus(marketID, types.RecommendationResolved), nil
}

func (f *fakeStore) setRecStatus(marketID string, status types.RecommendationStatus) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for i := range f.recs {
		if f.recs[i].MarketID == marketID && f.recs[i].Status == types.RecommendationActive {
			f.recs[i].Status = status
			n++
		}
	}

	return n
}

func (f *fakeStore) InsertTrade(_ context.Context, t *types.Trade) (*types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *t
	stored.ID = f.id()
	if stored.Status == "" {
		stored.Status = types.TradeOpen
	}
	f.trades = append(f.trades, stored)
	out := stored

	return &out, nil
}

func (f *fakeStore) TradeByVenueID(_ context.Context, venueTradeID string) (*types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.trades {
		if t.VenueTradeID == venueTradeID {
			out := t
			return &out, nil
		}
	}

	return nil, types.ErrNotFound
}

func (f *fakeStore) OpenTrades(context.Context) ([]types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.Trade
	for _, t := range f.trades {
		if t.Status == types.TradeOpen {
			out = append(out, t)
		}
	}

	return out, nil
}

func (f *fakeStore) OpenTradeForMarket(_ context.Context, marketID string, dir types.Direction) (*types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.trades {
		if t.MarketID == marketID && t.Direction == dir && t.Status == types.TradeOpen {
			out := t
			return &out, nil
		}
	}

	return nil, types.ErrNotFound
}

func (f *fakeStore) OpenTradesForMarket(_ context.Context, marketID string) ([]types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.Trade
	for _, t := range f.trades {
		if t.MarketID == marketID && t.Status == types.TradeOpen {
			out = append(out, t)
		}
	}

	return out, nil
}

func (f *fakeStore) UpdateTradeFill(_ context.Context, id, venueTradeID string, price float64, contracts int, amount, fees float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.trades {
		if f.trades[i].ID == id {
			f.trades[i].VenueTradeID = venueTradeID
			f.trades[i].Price = price
			f.trades[i].Contracts = contracts
			f.trades[i].Amount = amount
			f.trades[i].FeesPaid = fees
			return nil
		}
	}

	return types.ErrNotFound
}

func (f *fakeStore) CloseTrade(_ context.Context, id string, pnl float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.trades {
		if f.trades[i].ID == id {
			f.trades[i].Status = types.TradeClosed
			f.trades[i].PnL = &pnl
			return nil
		}
	}

	return types.ErrNotFound
}

func (f *fakeStore) CancelTrade(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.trades {
		if f.trades[i].ID == id {
			f.trades[i].Status = types.TradeCanceled
			return nil
		}
	}

	return types.ErrNotFound
}

func (f *fakeStore) OpenExposure(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sum float64
	for _, t := range f.trades {
		if t.Status == types.TradeOpen {
			sum += t.Amount
		}
	}

	return sum, nil
}

func (f *fakeStore) InsertPerformance(_ context.Context, p *types.PerformanceRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.perf {
		if existing.MarketID == p.MarketID {
			return false, nil
		}
	}

	stored := *p
	stored.ID = f.id()
	f.perf = append(f.perf, stored)

	return true, nil
}

func (f *fakeStore) PerformanceAggregate(context.Context) (*types.PerformanceAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	agg := &types.PerformanceAggregate{TotalResolved: len(f.perf)}
	for _, p := range f.perf {
		agg.TotalPnL += p.PnL
	}

	return agg, nil
}

func (f *fakeStore) CalibrationBuckets(context.Context, float64) ([]types.CalibrationBucket, error) {
	return nil, nil
}

func (f *fakeStore) CalibrationStats(context.Context) (*types.CalibrationStats, error) {
	if f.calStats == nil {
		return &types.CalibrationStats{}, nil
	}
	return f.calStats, nil
}

func (f *fakeStore) InsertCost(_ context.Context, c *types.ResearchCost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.costs = append(f.costs, *c)
	return nil
}

func (f *fakeStore) CostSince(context.Context, time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sum float64
	for _, c := range f.costs {
		sum += c.CostUSD
	}

	return sum, nil
}

func (f *fakeStore) InsertSyncLog(_ context.Context, r *types.SyncResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncLogs = append(f.syncLogs, *r)
	return nil
}

func (f *fakeStore) AllConfig(context.Context) (map[string]string, error) {
	return f.kv, nil
}

func (f *fakeStore) SetConfig(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = value
	return nil
}

// fakeVenue is a scripted Venue.
type fakeVenue struct {
	mu          sync.Mutex
	markets     []types.VenueMarket
	fetchBlock  chan struct{} // when set, FetchMarkets waits on it
	resolutions map[string]types.ResolutionState
	refreshed   map[string]*types.VenueMarket
	orders      []placedOrder
}

type placedOrder struct {
	ticker string
	side   string
	count  int
	cents  int
}

func (v *fakeVenue) FetchMarkets(ctx context.Context, _ exchange.FetchOptions) ([]types.VenueMarket, error) {
	if v.fetchBlock != nil {
		select {
		case <-v.fetchBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return v.markets, nil
}

func (v *fakeVenue) GetMarket(_ context.Context, ticker string) (*types.VenueMarket, error) {
	if m, ok := v.refreshed[ticker]; ok {
		return m, nil
	}

	return nil, types.ErrNotFound
}

func (v *fakeVenue) CheckResolutionsBatch(_ context.Context, tickers []string) (map[string]types.ResolutionState, error) {
	states := make(map[string]types.ResolutionState, len(tickers))
	for _, ticker := range tickers {
		if state, ok := v.resolutions[ticker]; ok {
			states[ticker] = state
		} else {
			states[ticker] = types.ResolutionPending
		}
	}

	return states, nil
}

func (v *fakeVenue) PlaceOrder(_ context.Context, ticker, side string, count, yesPriceCents int) (*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.orders = append(v.orders, placedOrder{ticker, side, count, yesPriceCents})

	return &exchange.Order{OrderID: "ord-" + strconv.Itoa(len(v.orders)), Status: "resting"}, nil
}

// fakeResearcher is a scripted Researcher.
type fakeResearcher struct {
	mu            sync.Mutex
	screenOut     map[string]bool // tickers rejected by the screen
	probabilities map[string]float64
	confidence    types.Confidence
	estimateErr   error
	estimateCalls int
	batchResults  map[string]*research.Result
}

func (r *fakeResearcher) Screen(_ context.Context, ticker string, _ *types.BlindInput) bool {
	return !r.screenOut[ticker]
}

func (r *fakeResearcher) Estimate(_ context.Context, input *types.BlindInput, _ research.EstimateOptions) (*research.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.estimateCalls++
	if r.estimateErr != nil {
		return nil, r.estimateErr
	}

	conf := r.confidence
	if conf == "" {
		conf = types.ConfidenceHigh
	}
	p, ok := r.probabilities[input.Question]
	if !ok {
		p = 0.5
	}

	return &research.Result{
		Probability:  p,
		Confidence:   conf,
		Reasoning:    "scripted",
		Model:        "claude-sonnet-4-20250514",
		InputTokens:  1000,
		OutputTokens: 200,
		CostUSD:      0.006,
	}, nil
}

func (r *fakeResearcher) EstimateBatch(_ context.Context, _ []research.BatchItem, _ research.BatchOptions) (map[string]*research.Result, error) {
	if r.batchResults == nil {
		return map[string]*research.Result{}, nil
	}

	return r.batchResults, nil
}

// fakeNotifier records every notification.
type fakeNotifier struct {
	mu          sync.Mutex
	summaries   []*notifier.ScanReport
	recs        []*notifier.RecommendationReport
	resolutions []*notifier.ResolutionReport
	digests     []*notifier.DigestReport
	failures    []string
}

func (n *fakeNotifier) SendScanSummary(_ context.Context, r *notifier.ScanReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, r)
}

func (n *fakeNotifier) SendRecommendation(_ context.Context, r *notifier.RecommendationReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recs = append(n.recs, r)
}

func (n *fakeNotifier) SendResolution(_ context.Context, r *notifier.ResolutionReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolutions = append(n.resolutions, r)
}

func (n *fakeNotifier) SendDigest(_ context.Context, r *notifier.DigestReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, r)
}

func (n *fakeNotifier) SendFailure(_ context.Context, subject, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, subject)
}

// fakeSettings returns a fixed settings value.
type fakeSettings struct {
	settings config.Settings
}

func (f *fakeSettings) Resolve(context.Context) config.Settings {
	return f.settings
}
