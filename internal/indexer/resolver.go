package indexer

import (
	"context"

	"go.uber.org/zap"

	"tradeScope/internal/model"
)

// MarketResolver maps a token id to a cached market row. On a cache miss it
// triggers at most one metadata-discovery pass per run, to bound HTTP call
// volume, then retries the lookup once. A second miss means the token id is
// genuinely unresolvable for this run.
type MarketResolver struct {
	store     Store
	discover  func(ctx context.Context) error
	attempted bool
	logger    *zap.Logger
}

// NewMarketResolver builds a resolver. discover may be nil when no event
// slug hint is available, in which case misses are final.
func NewMarketResolver(store Store, discover func(ctx context.Context) error, logger *zap.Logger) *MarketResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketResolver{store: store, discover: discover, logger: logger}
}

// Resolve returns the market owning the token id, or nil when unresolvable.
func (r *MarketResolver) Resolve(ctx context.Context, tokenID string) (*model.Market, error) {
	market, err := r.store.FindMarketByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if market != nil {
		return market, nil
	}

	if r.discover == nil || r.attempted {
		return nil, nil
	}
	r.attempted = true

	if err := r.discover(ctx); err != nil {
		// Discovery failure does not abort the run: logs resolvable from
		// markets cached by prior runs are still processed.
		r.logger.Warn("market discovery failed", zap.String("token_id", tokenID), zap.Error(err))
	}
	return r.store.FindMarketByTokenID(ctx, tokenID)
}
