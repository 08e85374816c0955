// Package postgres owns the on-disk representation of events, markets,
// trades and the sync cursor.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradeScope/internal/gamma"
	"tradeScope/internal/model"
)

// Store provides Postgres persistence for the indexer and the query API.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func isoNow() string {
	return time.Now().UTC().Format(model.ISOTimestampLayout)
}

// UpsertEvent inserts or updates an event keyed by slug and returns the row
// id. The update path overwrites all mutable fields and refreshes
// updated_at; it never changes the slug.
func (s *Store) UpsertEvent(ctx context.Context, ev model.Event) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO events (event_id, slug, title, description, neg_risk, active, closed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slug) DO UPDATE SET
			event_id = EXCLUDED.event_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			neg_risk = EXCLUDED.neg_risk,
			active = EXCLUDED.active,
			closed = EXCLUDED.closed,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`,
		ev.EventID,
		ev.Slug,
		ev.Title,
		ev.Description,
		ev.NegRisk,
		ev.Active,
		ev.Closed,
		ev.CreatedAt,
		isoNow(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert event %s: %w", ev.Slug, err)
	}
	return id, nil
}

// UpsertMarket inserts or updates a market keyed by slug and returns the row
// id. Token ids are expected in canonical decimal-string form.
func (s *Store) UpsertMarket(ctx context.Context, m model.Market) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO markets (
			event_id, slug, title, description, condition_id, question_id, oracle,
			collateral_token, yes_token_id, no_token_id, enable_neg_risk,
			status, created_at, updated_at
		) VALUES (NULLIF($1, 0), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (slug) DO UPDATE SET
			event_id = EXCLUDED.event_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			condition_id = EXCLUDED.condition_id,
			question_id = EXCLUDED.question_id,
			oracle = EXCLUDED.oracle,
			collateral_token = EXCLUDED.collateral_token,
			yes_token_id = EXCLUDED.yes_token_id,
			no_token_id = EXCLUDED.no_token_id,
			enable_neg_risk = EXCLUDED.enable_neg_risk,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`,
		m.EventID,
		m.Slug,
		m.Title,
		m.Description,
		m.ConditionID,
		m.QuestionID,
		m.Oracle,
		m.CollateralToken,
		m.YesTokenID,
		m.NoTokenID,
		m.EnableNegRisk,
		m.Status,
		m.CreatedAt,
		isoNow(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert market %s: %w", m.Slug, err)
	}
	return id, nil
}

const insertTradeSQL = `
	INSERT INTO trades (
		market_id, tx_hash, log_index, block_number, block_hash, timestamp,
		maker, taker, side, outcome, price, size, token_id, maker_asset_id,
		taker_asset_id, maker_amount_filled, taker_amount_filled, exchange_address
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	ON CONFLICT (tx_hash, log_index) DO NOTHING
`

func queueTrade(batch *pgx.Batch, t model.Trade) {
	batch.Queue(insertTradeSQL,
		t.MarketID,
		t.TxHash,
		int64(t.LogIndex),
		int64(t.BlockNumber),
		t.BlockHash,
		t.Timestamp,
		t.Maker,
		t.Taker,
		t.Side,
		t.Outcome,
		t.Price,
		t.Size,
		t.TokenID,
		t.MakerAssetID,
		t.TakerAssetID,
		t.MakerAmountFilled,
		t.TakerAmountFilled,
		t.ExchangeAddress,
	)
}

// InsertTradesAdvancingCursor inserts the trade batch and advances the sync
// cursor in a single transaction: readers never observe a partial batch, and
// a crash leaves either both or neither. Rows violating the
// (tx_hash, log_index) uniqueness constraint are ignored; the returned count
// covers rows actually inserted, so re-running the same batch yields 0.
func (s *Store) InsertTradesAdvancingCursor(ctx context.Context, trades []model.Trade, key string, lastBlock uint64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var inserted int64
	if len(trades) > 0 {
		batch := &pgx.Batch{}
		for _, t := range trades {
			queueTrade(batch, t)
		}
		br := tx.SendBatch(ctx, batch)
		for range trades {
			ct, err := br.Exec()
			if err != nil {
				br.Close()
				return 0, fmt.Errorf("insert trades: %w", err)
			}
			inserted += ct.RowsAffected()
		}
		if err := br.Close(); err != nil {
			return 0, fmt.Errorf("insert trades: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, upsertSyncStateSQL, key, int64(lastBlock), isoNow()); err != nil {
		return 0, fmt.Errorf("update sync state %s: %w", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

const upsertSyncStateSQL = `
	INSERT INTO sync_state (key, last_block, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE
	SET last_block = EXCLUDED.last_block, updated_at = EXCLUDED.updated_at
`

// GetSyncState returns the cursor for a key. ok is false when the key was
// never set, which callers must distinguish from block 0.
func (s *Store) GetSyncState(ctx context.Context, key string) (uint64, bool, error) {
	var lastBlock int64
	row := s.pool.QueryRow(ctx, `SELECT last_block FROM sync_state WHERE key = $1`, key)
	if err := row.Scan(&lastBlock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get sync state %s: %w", key, err)
	}
	return uint64(lastBlock), true, nil
}

const marketColumns = `
	id, COALESCE(event_id, 0), slug, COALESCE(title, ''), COALESCE(description, ''),
	COALESCE(condition_id, ''), COALESCE(question_id, ''), COALESCE(oracle, ''),
	COALESCE(collateral_token, ''), COALESCE(yes_token_id, ''), COALESCE(no_token_id, ''),
	enable_neg_risk, COALESCE(status, ''), COALESCE(created_at, ''), COALESCE(updated_at, '')
`

func scanMarket(row pgx.Row) (model.Market, error) {
	var m model.Market
	err := row.Scan(
		&m.ID, &m.EventID, &m.Slug, &m.Title, &m.Description,
		&m.ConditionID, &m.QuestionID, &m.Oracle,
		&m.CollateralToken, &m.YesTokenID, &m.NoTokenID,
		&m.EnableNegRisk, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// FindMarketByTokenID looks up a market by either outcome token id. The
// argument is canonicalized first, so hex and decimal forms resolve alike.
// Token id uniqueness guarantees at most one row; absent yields (nil, nil).
func (s *Store) FindMarketByTokenID(ctx context.Context, tokenID string) (*model.Market, error) {
	tokenID = gamma.NormalizeTokenID(tokenID)
	if tokenID == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE yes_token_id = $1 OR no_token_id = $1 LIMIT 1`,
		tokenID,
	)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find market by token id %s: %w", tokenID, err)
	}
	return &m, nil
}

// GetMarketBySlug returns a market row or (nil, nil) when absent.
func (s *Store) GetMarketBySlug(ctx context.Context, slug string) (*model.Market, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+marketColumns+` FROM markets WHERE slug = $1`, slug)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get market %s: %w", slug, err)
	}
	return &m, nil
}

// GetEventBySlug returns an event row or (nil, nil) when absent.
func (s *Store) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var ev model.Event
	row := s.pool.QueryRow(ctx, `
		SELECT id, COALESCE(event_id, ''), slug, COALESCE(title, ''), COALESCE(description, ''),
			neg_risk, active, closed, COALESCE(created_at, ''), COALESCE(updated_at, '')
		FROM events WHERE slug = $1
	`, slug)
	err := row.Scan(
		&ev.ID, &ev.EventID, &ev.Slug, &ev.Title, &ev.Description,
		&ev.NegRisk, &ev.Active, &ev.Closed, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event %s: %w", slug, err)
	}
	return &ev, nil
}

// ListMarketsForEvent returns all markets belonging to an event slug,
// oldest first.
func (s *Store) ListMarketsForEvent(ctx context.Context, eventSlug string) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+marketColumnsPrefixed("m")+`
		FROM markets m
		JOIN events e ON m.event_id = e.id
		WHERE e.slug = $1
		ORDER BY m.id ASC
	`, eventSlug)
	if err != nil {
		return nil, fmt.Errorf("list markets for event %s: %w", eventSlug, err)
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("list markets for event %s: %w", eventSlug, err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func marketColumnsPrefixed(alias string) string {
	return alias + `.id, COALESCE(` + alias + `.event_id, 0), ` + alias + `.slug,
	COALESCE(` + alias + `.title, ''), COALESCE(` + alias + `.description, ''),
	COALESCE(` + alias + `.condition_id, ''), COALESCE(` + alias + `.question_id, ''),
	COALESCE(` + alias + `.oracle, ''), COALESCE(` + alias + `.collateral_token, ''),
	COALESCE(` + alias + `.yes_token_id, ''), COALESCE(` + alias + `.no_token_id, ''),
	` + alias + `.enable_neg_risk, COALESCE(` + alias + `.status, ''),
	COALESCE(` + alias + `.created_at, ''), COALESCE(` + alias + `.updated_at, '')`
}

const tradeColumns = `
	id, market_id, tx_hash, log_index, COALESCE(block_number, 0), COALESCE(block_hash, ''),
	COALESCE(timestamp, ''), COALESCE(maker, ''), COALESCE(taker, ''), COALESCE(side, ''),
	COALESCE(outcome, ''), COALESCE(price, ''), COALESCE(size, ''), COALESCE(token_id, ''),
	COALESCE(maker_asset_id, ''), COALESCE(taker_asset_id, ''),
	COALESCE(maker_amount_filled, ''), COALESCE(taker_amount_filled, ''),
	COALESCE(exchange_address, ''), COALESCE(created_at, '')
`

func scanTrade(rows pgx.Rows) (model.Trade, error) {
	var t model.Trade
	var logIndex, blockNumber int64
	err := rows.Scan(
		&t.ID, &t.MarketID, &t.TxHash, &logIndex, &blockNumber, &t.BlockHash,
		&t.Timestamp, &t.Maker, &t.Taker, &t.Side,
		&t.Outcome, &t.Price, &t.Size, &t.TokenID,
		&t.MakerAssetID, &t.TakerAssetID,
		&t.MakerAmountFilled, &t.TakerAmountFilled,
		&t.ExchangeAddress, &t.CreatedAt,
	)
	t.LogIndex = uint64(logIndex)
	t.BlockNumber = uint64(blockNumber)
	return t, err
}

// tradeFilter builds the optional inclusive block-range clause. Argument
// numbering continues from the provided offset.
func tradeFilter(q model.TradeQuery, args []any) (string, []any) {
	clause := ""
	if q.FromBlock != nil {
		args = append(args, int64(*q.FromBlock))
		clause += " AND block_number >= $" + strconv.Itoa(len(args))
	}
	if q.ToBlock != nil {
		args = append(args, int64(*q.ToBlock))
		clause += " AND block_number <= $" + strconv.Itoa(len(args))
	}
	return clause, args
}

func (s *Store) listTrades(ctx context.Context, where string, args []any, q model.TradeQuery) ([]model.Trade, error) {
	clause, args := tradeFilter(q, args)
	args = append(args, q.Limit)
	limitArg := len(args)
	args = append(args, q.Offset)
	offsetArg := len(args)

	// Block-descending, log-index-descending ordering is a compatibility
	// contract for the query API: most recent trades first.
	sql := `SELECT ` + tradeColumns + ` FROM trades WHERE ` + where + clause +
		` ORDER BY block_number DESC, log_index DESC LIMIT $` + strconv.Itoa(limitArg) +
		` OFFSET $` + strconv.Itoa(offsetArg)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("list trades: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListTradesForMarket returns trades for a market row id, paginated and
// optionally filtered by an inclusive block range.
func (s *Store) ListTradesForMarket(ctx context.Context, marketID int64, q model.TradeQuery) ([]model.Trade, error) {
	return s.listTrades(ctx, "market_id = $1", []any{marketID}, q)
}

// ListTradesForToken returns trades for a token id, paginated and optionally
// filtered by an inclusive block range. The id is canonicalized before the
// query since trades are stored under canonical decimal form.
func (s *Store) ListTradesForToken(ctx context.Context, tokenID string, q model.TradeQuery) ([]model.Trade, error) {
	return s.listTrades(ctx, "token_id = $1", []any{gamma.NormalizeTokenID(tokenID)}, q)
}
