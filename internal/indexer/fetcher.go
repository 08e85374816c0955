package indexer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"tradeScope/internal/model"
)

// LogFetcher retrieves raw logs over a block range, chunking to respect
// provider range limits. Chunks are fetched concurrently but results are
// concatenated in ascending block order. A chunk failure is not retried: it
// propagates as model.ErrLogFetchFailed and aborts the run.
type LogFetcher struct {
	chain       Chain
	chunkSize   uint64
	concurrency int
}

// NewLogFetcher builds a fetcher. concurrency <= 1 fetches sequentially.
func NewLogFetcher(chainClient Chain, chunkSize uint64, concurrency int) *LogFetcher {
	if chunkSize == 0 {
		chunkSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &LogFetcher{chain: chainClient, chunkSize: chunkSize, concurrency: concurrency}
}

// Fetch returns all logs matching the addresses and topic0 in [from, to].
func (f *LogFetcher) Fetch(ctx context.Context, addresses []common.Address, topic0 common.Hash, from, to uint64) ([]types.Log, error) {
	chunks, err := SplitRange(from, to, f.chunkSize)
	if err != nil {
		return nil, err
	}

	results := make([][]types.Log, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			logs, err := f.chain.FilterLogs(gctx, chunk.From, chunk.To, addresses, []common.Hash{topic0})
			if err != nil {
				return fmt.Errorf("%w: blocks %d-%d: %v", model.ErrLogFetchFailed, chunk.From, chunk.To, err)
			}
			results[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []types.Log
	for _, logs := range results {
		all = append(all, logs...)
	}
	return all, nil
}
