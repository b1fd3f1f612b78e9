package storage

// schemaDDL is executed on connect. Statements are idempotent.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS markets (
		id UUID PRIMARY KEY,
		venue TEXT NOT NULL,
		venue_id TEXT NOT NULL,
		question TEXT NOT NULL,
		description TEXT,
		resolution_criteria TEXT,
		category TEXT,
		event_ticker TEXT,
		close_time TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'active',
		outcome BOOLEAN,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (venue, venue_id)
	)`,
	`CREATE TABLE IF NOT EXISTS market_snapshots (
		id UUID PRIMARY KEY,
		market_id UUID NOT NULL REFERENCES markets(id),
		price_yes DOUBLE PRECISION NOT NULL,
		price_no DOUBLE PRECISION NOT NULL,
		volume DOUBLE PRECISION,
		liquidity DOUBLE PRECISION,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_market_time
		ON market_snapshots (market_id, captured_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ai_estimates (
		id UUID PRIMARY KEY,
		market_id UUID NOT NULL REFERENCES markets(id),
		probability DOUBLE PRECISION NOT NULL,
		confidence TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		key_evidence TEXT[],
		key_uncertainties TEXT[],
		model TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_estimates_market_time
		ON ai_estimates (market_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		id UUID PRIMARY KEY,
		market_id UUID NOT NULL REFERENCES markets(id),
		estimate_id UUID NOT NULL REFERENCES ai_estimates(id),
		snapshot_id UUID NOT NULL REFERENCES market_snapshots(id),
		direction TEXT NOT NULL,
		market_price DOUBLE PRECISION NOT NULL,
		ai_probability DOUBLE PRECISION NOT NULL,
		edge DOUBLE PRECISION NOT NULL,
		ev DOUBLE PRECISION NOT NULL,
		kelly_fraction DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_status
		ON recommendations (status, market_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_recommendations_one_active
		ON recommendations (market_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS trades (
		id UUID PRIMARY KEY,
		market_id UUID NOT NULL REFERENCES markets(id),
		recommendation_id UUID REFERENCES recommendations(id),
		venue_trade_id TEXT NOT NULL UNIQUE,
		direction TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		contracts INTEGER NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		fees_paid DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'open',
		pnl DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		closed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS performance_log (
		id UUID PRIMARY KEY,
		market_id UUID NOT NULL REFERENCES markets(id),
		recommendation_id UUID REFERENCES recommendations(id),
		ai_probability DOUBLE PRECISION NOT NULL,
		market_price DOUBLE PRECISION NOT NULL,
		actual_outcome BOOLEAN NOT NULL,
		pnl DOUBLE PRECISION,
		simulated_pnl DOUBLE PRECISION,
		brier_score DOUBLE PRECISION NOT NULL,
		resolved_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS research_cost_log (
		id UUID PRIMARY KEY,
		market_id UUID,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cost_usd DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS trade_sync_log (
		id UUID PRIMARY KEY,
		fills_seen INTEGER NOT NULL,
		trades_created INTEGER NOT NULL,
		trades_updated INTEGER NOT NULL,
		trades_canceled INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		ran_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
