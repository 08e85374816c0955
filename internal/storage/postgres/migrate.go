package postgres

import (
	"context"
	"fmt"
)

// Schema: slug is the idempotency key for events and markets;
// (tx_hash, log_index) is the sole de-duplication key for trades.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		event_id TEXT,
		slug TEXT UNIQUE NOT NULL,
		title TEXT,
		description TEXT,
		neg_risk BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		closed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS markets (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT REFERENCES events(id),
		slug TEXT UNIQUE NOT NULL,
		title TEXT,
		description TEXT,
		condition_id TEXT,
		question_id TEXT,
		oracle TEXT,
		collateral_token TEXT,
		yes_token_id TEXT,
		no_token_id TEXT,
		enable_neg_risk BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_markets_condition_id ON markets (condition_id)`,
	`CREATE INDEX IF NOT EXISTS idx_markets_yes_token_id ON markets (yes_token_id)`,
	`CREATE INDEX IF NOT EXISTS idx_markets_no_token_id ON markets (no_token_id)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id BIGSERIAL PRIMARY KEY,
		market_id BIGINT NOT NULL REFERENCES markets(id),
		tx_hash TEXT NOT NULL,
		log_index BIGINT NOT NULL,
		block_number BIGINT,
		block_hash TEXT,
		timestamp TEXT,
		maker TEXT,
		taker TEXT,
		side TEXT,
		outcome TEXT,
		price TEXT,
		size TEXT,
		token_id TEXT,
		maker_asset_id TEXT,
		taker_asset_id TEXT,
		maker_amount_filled TEXT,
		taker_amount_filled TEXT,
		exchange_address TEXT,
		created_at TEXT NOT NULL DEFAULT to_char(now() AT TIME ZONE 'utc', 'YYYY-MM-DD"T"HH24:MI:SS'),
		UNIQUE (tx_hash, log_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_market_timestamp ON trades (market_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_token_id ON trades (token_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_block_number ON trades (block_number)`,
	`CREATE TABLE IF NOT EXISTS sync_state (
		key TEXT PRIMARY KEY,
		last_block BIGINT NOT NULL,
		updated_at TEXT
	)`,
}

// Migrate creates the schema. Safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
