package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tradeScope/internal/model"
)

// Chain is the RPC surface the indexer needs. Satisfied by *chain.Client.
// Chain calls are not retried; their failure is fatal to the run.
type Chain interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	TransactionBlock(ctx context.Context, txHash common.Hash) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Store is the persistence surface the indexer needs. Satisfied by
// *postgres.Store.
type Store interface {
	UpsertEvent(ctx context.Context, ev model.Event) (int64, error)
	UpsertMarket(ctx context.Context, m model.Market) (int64, error)
	FindMarketByTokenID(ctx context.Context, tokenID string) (*model.Market, error)
	GetSyncState(ctx context.Context, key string) (uint64, bool, error)
	InsertTradesAdvancingCursor(ctx context.Context, trades []model.Trade, key string, lastBlock uint64) (int64, error)
}

// Metadata fetches provider-shaped event and market objects. Satisfied by
// *gamma.Client.
type Metadata interface {
	FetchEventWithMarkets(ctx context.Context, slug string) (map[string]any, []map[string]any, error)
}
