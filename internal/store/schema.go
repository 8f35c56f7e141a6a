package store

// schema is applied idempotently on startup via Migrate. It realizes
// spec.md §6.5's opaque persistence port as a concrete relational shape:
// one append-only row per trade (mutated once at settlement), and one
// row per raw-data observation batched in from internal/rawdata.
const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id             UUID PRIMARY KEY,
	coin           TEXT NOT NULL,
	window_start_ms BIGINT NOT NULL,
	direction      TEXT NOT NULL,
	token_id       TEXT NOT NULL,
	side           SMALLINT NOT NULL,
	size           NUMERIC NOT NULL,
	price          NUMERIC NOT NULL,
	cost           NUMERIC NOT NULL,
	order_id       TEXT NOT NULL,
	detector       TEXT NOT NULL,
	placed_at_ms   BIGINT NOT NULL,
	outcome        SMALLINT,
	was_hedged     BOOLEAN,
	realized_pnl   NUMERIC,
	settled_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS trades_coin_window_idx ON trades (coin, window_start_ms);

CREATE TABLE IF NOT EXISTS orderbook_snapshots (
	id           BIGSERIAL PRIMARY KEY,
	coin         TEXT NOT NULL,
	asset_id     TEXT NOT NULL,
	best_bid     NUMERIC NOT NULL,
	best_ask     NUMERIC NOT NULL,
	bid_depth    NUMERIC NOT NULL,
	ask_depth    NUMERIC NOT NULL,
	timestamp_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS funding_rates (
	id              BIGSERIAL PRIMARY KEY,
	coin            TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	rate            NUMERIC NOT NULL,
	annualized_rate NUMERIC NOT NULL,
	timestamp_ms    BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS liquidations (
	id           BIGSERIAL PRIMARY KEY,
	coin         TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	qty          NUMERIC NOT NULL,
	price        NUMERIC NOT NULL,
	timestamp_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS cross_market_opportunities (
	id                  BIGSERIAL PRIMARY KEY,
	coin1               TEXT NOT NULL,
	coin2               TEXT NOT NULL,
	combination         TEXT NOT NULL,
	leg1_direction      TEXT NOT NULL,
	leg1_price          NUMERIC NOT NULL,
	leg1_token_id       TEXT NOT NULL,
	leg2_direction      TEXT NOT NULL,
	leg2_price          NUMERIC NOT NULL,
	leg2_token_id       TEXT NOT NULL,
	total_cost          NUMERIC NOT NULL,
	spread              NUMERIC NOT NULL,
	expected_value      NUMERIC NOT NULL,
	assumed_correlation DOUBLE PRECISION NOT NULL,
	win_probability     DOUBLE PRECISION NOT NULL,
	detected_at_ms      BIGINT NOT NULL,
	settled             BOOLEAN NOT NULL DEFAULT FALSE,
	settled_at          TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS cross_market_pending_idx ON cross_market_opportunities (settled) WHERE NOT settled;
`
