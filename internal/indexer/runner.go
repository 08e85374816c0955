// Package indexer composes range resolution, log fetching, decoding, market
// resolution and persistence into one indexing run.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tradeScope/internal/exchange"
	"tradeScope/internal/gamma"
	"tradeScope/internal/model"
)

// sampleTradeCount bounds the trade sample carried in the run summary.
const sampleTradeCount = 5

// RunConfig holds runtime settings for one indexing run.
type RunConfig struct {
	SyncKey           string
	EventSlug         string
	Exchanges         []common.Address
	ChunkSize         uint64
	FetchConcurrency  int
	DefaultCollateral string

	// Explicit range bounds; nil means unset. TxHash, when given, resolves
	// to its containing block and fills any unset bound.
	From   *uint64
	To     *uint64
	TxHash *common.Hash
}

// Runner executes one indexing run end to end.
type Runner struct {
	cfg      RunConfig
	chain    Chain
	store    Store
	metadata Metadata
	logger   *zap.Logger
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient Chain, store Store, metadata Metadata, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		chain:    chainClient,
		store:    store,
		metadata: metadata,
		logger:   logger,
	}
}

// Run executes the indexing sequence: resolve range, refresh the market
// catalog, fetch logs, decode and resolve each fill, then insert the batch
// and advance the sync cursor in one transaction.
func (r *Runner) Run(ctx context.Context) (*model.RunSummary, error) {
	if r.chain == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if r.store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if len(r.cfg.Exchanges) == 0 {
		return nil, fmt.Errorf("at least one exchange address must be enabled")
	}
	if r.cfg.SyncKey == "" {
		return nil, fmt.Errorf("sync key is required")
	}

	var txBlock *uint64
	if r.cfg.TxHash != nil {
		block, err := r.chain.TransactionBlock(ctx, *r.cfg.TxHash)
		if err != nil {
			return nil, fmt.Errorf("resolve reference tx %s: %w", r.cfg.TxHash.Hex(), err)
		}
		txBlock = &block
	}

	rng, err := ResolveRange(ctx, RangeOptions{
		From:    r.cfg.From,
		To:      r.cfg.To,
		TxBlock: txBlock,
		Cursor: func(ctx context.Context) (uint64, bool, error) {
			return r.store.GetSyncState(ctx, r.cfg.SyncKey)
		},
		Head: r.chain.LatestBlockNumber,
	})
	if err != nil {
		return nil, err
	}

	// Discovery always runs, even when the range holds no logs, so the
	// market catalog stays fresh. Its failure does not abort the run:
	// markets cached by prior runs still resolve.
	discovery, err := r.discoverMarkets(ctx, r.cfg.EventSlug)
	if err != nil {
		r.logger.Warn("market discovery failed",
			zap.String("event_slug", r.cfg.EventSlug), zap.Error(err))
	}

	fetcher := NewLogFetcher(r.chain, r.cfg.ChunkSize, r.cfg.FetchConcurrency)
	logs, err := fetcher.Fetch(ctx, r.cfg.Exchanges, exchange.OrderFilledTopic(), rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	r.logger.Info("logs fetched",
		zap.Uint64("from", rng.From), zap.Uint64("to", rng.To), zap.Int("logs", len(logs)))

	var discover func(ctx context.Context) error
	if r.cfg.EventSlug != "" {
		discover = func(ctx context.Context) error {
			_, err := r.discoverMarkets(ctx, r.cfg.EventSlug)
			return err
		}
	}
	resolver := NewMarketResolver(r.store, discover, r.logger)

	summary := &model.RunSummary{
		FromBlock:    rng.From,
		ToBlock:      rng.To,
		EventSlug:    r.cfg.EventSlug,
		SampleTrades: []model.Trade{},
	}
	summary.MarketDiscovery = discovery

	var toInsert []model.Trade
	for _, lg := range logs {
		trade, err := exchange.DecodeOrderFilled(lg)
		if err != nil {
			if errors.Is(err, model.ErrMalformedLog) {
				// Isolated bad logs must not abort a run.
				summary.SkippedMalformed++
				r.logger.Warn("skipping malformed log",
					zap.String("tx_hash", lg.TxHash.Hex()), zap.Uint("log_index", lg.Index), zap.Error(err))
				continue
			}
			return nil, err
		}

		market, err := resolver.Resolve(ctx, trade.TokenID)
		if err != nil {
			return nil, err
		}
		if market == nil {
			summary.SkippedUnresolved++
			r.logger.Debug("dropping trade",
				zap.String("token_id", trade.TokenID),
				zap.String("tx_hash", trade.TxHash),
				zap.Error(model.ErrUnresolvableToken))
			continue
		}

		trade.MarketID = market.ID
		trade.Outcome = classifyOutcome(trade.TokenID, market)

		ts, err := r.chain.BlockTimestamp(ctx, trade.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("block timestamp %d: %w", trade.BlockNumber, err)
		}
		trade.Timestamp = model.ISOFromUnix(ts)

		toInsert = append(toInsert, trade)
	}

	inserted, err := r.store.InsertTradesAdvancingCursor(ctx, toInsert, r.cfg.SyncKey, rng.To)
	if err != nil {
		return nil, err
	}

	summary.InsertedTrades = inserted
	for i, t := range toInsert {
		if i >= sampleTradeCount {
			break
		}
		summary.SampleTrades = append(summary.SampleTrades, t)
	}
	if len(toInsert) > 0 {
		summary.MarketID = toInsert[0].MarketID
	}

	r.logger.Info("run complete",
		zap.Uint64("from", rng.From),
		zap.Uint64("to", rng.To),
		zap.Int64("inserted", inserted),
		zap.Int("skipped_malformed", summary.SkippedMalformed),
		zap.Int("skipped_unresolved", summary.SkippedUnresolved))

	return summary, nil
}

// discoverMarkets fetches the event and its markets from the metadata
// service, normalizes them, and upserts the rows.
func (r *Runner) discoverMarkets(ctx context.Context, slug string) (*model.MarketDiscovery, error) {
	if slug == "" {
		return nil, nil
	}

	eventObj, marketObjs, err := r.metadata.FetchEventWithMarkets(ctx, slug)
	if err != nil {
		return nil, err
	}

	event := gamma.NormalizeEvent(eventObj)
	if event.Slug == "" {
		event.Slug = slug
	}

	eventRowID, err := r.store.UpsertEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	marketIDs := make([]int64, 0, len(marketObjs))
	for _, obj := range marketObjs {
		market, ok := gamma.NormalizeMarket(obj, eventRowID, event.NegRisk, r.cfg.DefaultCollateral)
		if !ok {
			continue
		}
		marketID, err := r.store.UpsertMarket(ctx, market)
		if err != nil {
			return nil, err
		}
		marketIDs = append(marketIDs, marketID)
	}

	r.logger.Info("markets discovered",
		zap.String("event_slug", event.Slug), zap.Int("markets", len(marketIDs)))

	return &model.MarketDiscovery{
		EventSlug: event.Slug,
		EventID:   eventRowID,
		MarketIDs: marketIDs,
	}, nil
}

// classifyOutcome compares the decoded token id against the market's YES/NO
// ids. A mismatch (stale catalog) persists as UNKNOWN, a valid state.
func classifyOutcome(tokenID string, market *model.Market) string {
	switch {
	case tokenID != "" && tokenID == gamma.NormalizeTokenID(market.YesTokenID):
		return model.OutcomeYes
	case tokenID != "" && tokenID == gamma.NormalizeTokenID(market.NoTokenID):
		return model.OutcomeNo
	default:
		return model.OutcomeUnknown
	}
}
