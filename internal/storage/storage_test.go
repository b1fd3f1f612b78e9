package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mselser95/kalshi-edge/pkg/types"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger, _ := zap.NewDevelopment()

	return &PostgresStore{db: db, logger: logger}, mock
}

func marketRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "venue", "venue_id", "question", "description", "resolution_criteria",
		"category", "event_ticker", "close_time", "status", "outcome", "created_at", "updated_at",
	})
}

func TestUpsertMarket(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO markets").
		WithArgs(
			sqlmock.AnyArg(), // generated id
			"kalshi",
			"KXFED-25DEC-T4.25",
			"Fed above 4.25?",
			"desc",
			"criteria",
			"economics",
			"KXFED-25DEC",
			sqlmock.AnyArg(), // close time
			"active",
		).
		WillReturnRows(marketRows().AddRow(
			"11111111-1111-1111-1111-111111111111", "kalshi", "KXFED-25DEC-T4.25",
			"Fed above 4.25?", "desc", "criteria", "economics", "KXFED-25DEC",
			now.Add(24*time.Hour), "active", nil, now, now))

	m, err := store.UpsertMarket(context.Background(), &types.Market{
		Venue:              "kalshi",
		VenueID:            "KXFED-25DEC-T4.25",
		Question:           "Fed above 4.25?",
		Description:        "desc",
		ResolutionCriteria: "criteria",
		Category:           "economics",
		EventTicker:        "KXFED-25DEC",
		CloseTime:          now.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if m.ID == "" || m.Category != "economics" || m.Outcome != nil {
		t.Errorf("unexpected market row: %+v", m)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsertRecommendation_ExpiresPriorActives(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE recommendations SET status = 'expired'").
		WithArgs("market-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO recommendations").
		WithArgs(
			sqlmock.AnyArg(),
			"market-1", "estimate-1", "snapshot-1", "yes",
			0.40, 0.70, 0.30, 0.2832, 0.05,
		).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "market_id", "estimate_id", "snapshot_id", "direction",
			"market_price", "ai_probability", "edge", "ev", "kelly_fraction",
			"status", "created_at",
		}).AddRow("rec-1", "market-1", "estimate-1", "snapshot-1", "yes",
			0.40, 0.70, 0.30, 0.2832, 0.05, "active", now))
	mock.ExpectCommit()

	rec, err := store.InsertRecommendation(context.Background(), &types.Recommendation{
		MarketID:      "market-1",
		EstimateID:    "estimate-1",
		SnapshotID:    "snapshot-1",
		Direction:     types.DirectionYes,
		MarketPrice:   0.40,
		AIProbability: 0.70,
		Edge:          0.30,
		EV:            0.2832,
		KellyFraction: 0.05,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.Status != types.RecommendationActive {
		t.Errorf("expected active status, got %s", rec.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsertRecommendation_RollsBackOnInsertError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE recommendations SET status = 'expired'").
		WithArgs("market-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO recommendations").
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	_, err := store.InsertRecommendation(context.Background(), &types.Recommendation{
		MarketID: "market-1", EstimateID: "e", SnapshotID: "s",
		Direction: types.DirectionYes,
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsertEstimate_ArraysRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO ai_estimates").
		WithArgs(
			sqlmock.AnyArg(), "market-1", 0.70, "high", "because",
			pq.Array([]string{"a", "b"}), pq.Array([]string{"c"}), "model-x",
		).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "market_id", "probability", "confidence", "reasoning",
			"key_evidence", "key_uncertainties", "model", "created_at",
		}).AddRow("est-1", "market-1", 0.70, "high", "because",
			pq.StringArray{"a", "b"}, pq.StringArray{"c"}, "model-x", now))

	e, err := store.InsertEstimate(context.Background(), &types.Estimate{
		MarketID:         "market-1",
		Probability:      0.70,
		Confidence:       types.ConfidenceHigh,
		Reasoning:        "because",
		KeyEvidence:      []string{"a", "b"},
		KeyUncertainties: []string{"c"},
		Model:            "model-x",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(e.KeyEvidence) != 2 || len(e.KeyUncertainties) != 1 {
		t.Errorf("arrays did not round trip: %+v", e)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecentEstimate_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM ai_estimates").
		WithArgs("market-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.RecentEstimate(context.Background(), "market-1", 20*time.Hour)
	if err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertPerformance_IdempotentSkip(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("market-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	inserted, err := store.InsertPerformance(context.Background(), &types.PerformanceRecord{
		MarketID:      "market-1",
		AIProbability: 0.7,
		MarketPrice:   0.4,
		ActualOutcome: true,
		BrierScore:    0.09,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if inserted {
		t.Error("expected skip when a performance row already exists")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsertPerformance_Inserts(t *testing.T) {
	store, mock := newMockStore(t)

	recID := "rec-9"
	simulated := 750.0

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("market-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO performance_log").
		WithArgs(sqlmock.AnyArg(), "market-1", "rec-9", 0.7, 0.4, true, 74.5, 750.0, 0.09).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := store.InsertPerformance(context.Background(), &types.PerformanceRecord{
		MarketID:         "market-1",
		RecommendationID: &recID,
		AIProbability:    0.7,
		MarketPrice:      0.4,
		ActualOutcome:    true,
		PnL:              74.5,
		SimulatedPnL:     &simulated,
		BrierScore:       0.09,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !inserted {
		t.Error("expected insert to happen")
	}
}

func TestTradeByVenueID_Dedup(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	tradeRows := sqlmock.NewRows([]string{
		"id", "market_id", "recommendation_id", "venue_trade_id", "direction",
		"price", "contracts", "amount", "fees_paid", "status", "pnl", "created_at", "closed_at",
	}).AddRow("trade-1", "market-1", nil, "fill_abc", "yes",
		0.40, 125, 50.0, 0.50, "open", nil, now, nil)

	mock.ExpectQuery("SELECT (.+) FROM trades WHERE venue_trade_id").
		WithArgs("fill_abc").
		WillReturnRows(tradeRows)

	trade, err := store.TradeByVenueID(context.Background(), "fill_abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if trade.VenueTradeID != "fill_abc" || trade.Contracts != 125 || trade.FeesPaid != 0.50 {
		t.Errorf("unexpected trade: %+v", trade)
	}

	mock.ExpectQuery("SELECT (.+) FROM trades WHERE venue_trade_id").
		WithArgs("fill_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = store.TradeByVenueID(context.Background(), "fill_missing")
	if err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTradeFill_RecordsFees(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE trades SET venue_trade_id").
		WithArgs("trade-1", "fill_f9", 0.41, 120, 49.2, 0.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateTradeFill(context.Background(), "trade-1", "fill_f9", 0.41, 120, 49.2, 0.5)
	if err != nil {
		t.Fatalf("update trade fill: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLatestRecommendationForMarket(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM recommendations").
		WithArgs("market-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "market_id", "estimate_id", "snapshot_id", "direction",
			"market_price", "ai_probability", "edge", "ev", "kelly_fraction",
			"status", "created_at",
		}).AddRow("rec-1", "market-1", "e1", "s1", "yes",
			0.40, 0.70, 0.30, 0.2832, 0.05, "resolved", now))

	rec, err := store.LatestRecommendationForMarket(context.Background(), "market-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.ID != "rec-1" || rec.Status != types.RecommendationResolved {
		t.Errorf("unexpected recommendation: %+v", rec)
	}

	mock.ExpectQuery("SELECT (.+) FROM recommendations").
		WithArgs("market-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = store.LatestRecommendationForMarket(context.Background(), "market-2")
	if err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPing_BootstrapsSchemaWhenDatabaseReturns(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger, _ := zap.NewDevelopment()
	store := &PostgresStore{db: db, logger: logger}

	// First successful ping runs the deferred schema bootstrap.
	mock.ExpectPing()
	for range schemaDDL {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	// Later pings do not re-run the DDL.
	mock.ExpectPing()
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("second ping: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCloseAndCancelTrade(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE trades SET status = 'closed'").
		WithArgs("trade-1", 75.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trades SET status = 'canceled'").
		WithArgs("trade-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.CloseTrade(context.Background(), "trade-1", 75.0); err != nil {
		t.Errorf("close trade: %v", err)
	}
	if err := store.CancelTrade(context.Background(), "trade-2"); err != nil {
		t.Errorf("cancel trade: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOpenExposure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(1234.5))

	total, err := store.OpenExposure(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != 1234.5 {
		t.Errorf("expected 1234.5, got %v", total)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO config").
		WithArgs("bankroll", "2500").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT key, value FROM config").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("bankroll", "2500").
			AddRow("scan_times", "8,20"))

	if err := store.SetConfig(context.Background(), "bankroll", "2500"); err != nil {
		t.Fatalf("set config: %v", err)
	}

	overrides, err := store.AllConfig(context.Background())
	if err != nil {
		t.Fatalf("all config: %v", err)
	}
	if overrides["bankroll"] != "2500" || overrides["scan_times"] != "8,20" {
		t.Errorf("unexpected overrides: %v", overrides)
	}
}

func TestStore_Interface(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	logger, _ := zap.NewDevelopment()

	var _ Store = &PostgresStore{db: db, logger: logger}
}
