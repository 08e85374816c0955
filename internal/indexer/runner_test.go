package indexer

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tradeScope/internal/exchange"
	"tradeScope/internal/model"
)

type fakeStore struct {
	events  map[string]int64
	markets map[string]model.Market

	cursor    map[string]uint64
	trades    map[string]model.Trade
	nextRowID int64

	insertCalls int
	findErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:  map[string]int64{},
		markets: map[string]model.Market{},
		cursor:  map[string]uint64{},
		trades:  map[string]model.Trade{},
	}
}

func (s *fakeStore) UpsertEvent(ctx context.Context, ev model.Event) (int64, error) {
	if id, ok := s.events[ev.Slug]; ok {
		return id, nil
	}
	s.nextRowID++
	s.events[ev.Slug] = s.nextRowID
	return s.nextRowID, nil
}

func (s *fakeStore) UpsertMarket(ctx context.Context, m model.Market) (int64, error) {
	if existing, ok := s.markets[m.Slug]; ok {
		m.ID = existing.ID
		s.markets[m.Slug] = m
		return m.ID, nil
	}
	s.nextRowID++
	m.ID = s.nextRowID
	s.markets[m.Slug] = m
	return m.ID, nil
}

func (s *fakeStore) FindMarketByTokenID(ctx context.Context, tokenID string) (*model.Market, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, m := range s.markets {
		if m.YesTokenID == tokenID || m.NoTokenID == tokenID {
			found := m
			return &found, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetSyncState(ctx context.Context, key string) (uint64, bool, error) {
	last, ok := s.cursor[key]
	return last, ok, nil
}

func (s *fakeStore) InsertTradesAdvancingCursor(ctx context.Context, trades []model.Trade, key string, lastBlock uint64) (int64, error) {
	s.insertCalls++
	var inserted int64
	for _, t := range trades {
		dedupeKey := fmt.Sprintf("%s:%d", t.TxHash, t.LogIndex)
		if _, ok := s.trades[dedupeKey]; ok {
			continue
		}
		s.trades[dedupeKey] = t
		inserted++
	}
	s.cursor[key] = lastBlock
	return inserted, nil
}

type fakeMetadata struct {
	calls   int
	err     error
	event   map[string]any
	markets []map[string]any
}

func (m *fakeMetadata) FetchEventWithMarkets(ctx context.Context, slug string) (map[string]any, []map[string]any, error) {
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.event, m.markets, nil
}

func fillWord(v int64) []byte {
	return new(big.Int).SetInt64(v).FillBytes(make([]byte, 32))
}

// orderFilledLog builds a well-formed BUY/SELL fill log at the given block.
func orderFilledLog(block uint64, index uint, makerAsset, takerAsset, makerFilled, takerFilled int64) types.Log {
	var data []byte
	for _, v := range []int64{1, makerAsset, takerAsset, makerFilled, takerFilled, 0} {
		data = append(data, fillWord(v)...)
	}
	return types.Log{
		Address: common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4d8dE6bd8B8982E"),
		Topics: []common.Hash{
			exchange.OrderFilledTopic(),
			common.HexToHash("0x0000000000000000000000001111111111111111111111111111111111111111"),
			common.HexToHash("0x0000000000000000000000002222222222222222222222222222222222222222"),
		},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*1000 + int64(index))),
		Index:       index,
	}
}

func rainEventPayload() (map[string]any, []map[string]any) {
	event := map[string]any{"id": "9", "slug": "rain", "title": "Will it rain?"}
	markets := []map[string]any{{
		"slug":         "will-it-rain",
		"conditionId":  "0xc1",
		"outcomes":     `["Yes", "No"]`,
		"clobTokenIds": `["555", "666"]`,
	}}
	return event, markets
}

func newTestRunner(chain *fakeChain, store *fakeStore, metadata *fakeMetadata, from, to uint64) *Runner {
	cfg := RunConfig{
		SyncKey:          "trade_sync",
		EventSlug:        "rain",
		Exchanges:        []common.Address{common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4d8dE6bd8B8982E")},
		ChunkSize:        4000,
		FetchConcurrency: 1,
		From:             &from,
		To:               &to,
	}
	return NewRunner(cfg, chain, store, metadata, nil)
}

func TestRunnerEndToEnd(t *testing.T) {
	event, markets := rainEventPayload()
	metadata := &fakeMetadata{event: event, markets: markets}
	store := newFakeStore()
	chain := &fakeChain{
		logs:       []types.Log{orderFilledLog(120, 3, 0, 555, 1_000_000, 2_000_000)},
		timestamps: map[uint64]uint64{120: 1_700_000_000},
	}

	summary, err := newTestRunner(chain, store, metadata, 100, 200).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.InsertedTrades != 1 {
		t.Fatalf("inserted = %d, want 1", summary.InsertedTrades)
	}
	if summary.FromBlock != 100 || summary.ToBlock != 200 {
		t.Fatalf("range = %d-%d", summary.FromBlock, summary.ToBlock)
	}
	if got := store.cursor["trade_sync"]; got != 200 {
		t.Fatalf("cursor = %d, want 200", got)
	}
	if metadata.calls != 1 {
		t.Fatalf("metadata calls = %d, want 1", metadata.calls)
	}
	if summary.MarketDiscovery == nil || summary.MarketDiscovery.EventSlug != "rain" {
		t.Fatalf("discovery = %+v", summary.MarketDiscovery)
	}
	if len(summary.SampleTrades) != 1 {
		t.Fatalf("samples = %d, want 1", len(summary.SampleTrades))
	}

	trade := summary.SampleTrades[0]
	if trade.Side != model.SideBuy {
		t.Fatalf("side = %s", trade.Side)
	}
	if trade.Outcome != model.OutcomeYes {
		t.Fatalf("outcome = %s, want YES", trade.Outcome)
	}
	if trade.Size != "2" || trade.Price != "0.5" {
		t.Fatalf("size = %s price = %s", trade.Size, trade.Price)
	}
	if trade.Timestamp != "2023-11-14T22:13:20" {
		t.Fatalf("timestamp = %s", trade.Timestamp)
	}
	if trade.MarketID == 0 || summary.MarketID != trade.MarketID {
		t.Fatalf("market id = %d, summary market id = %d", trade.MarketID, summary.MarketID)
	}
}

func TestRunnerIdempotentRerun(t *testing.T) {
	event, markets := rainEventPayload()
	metadata := &fakeMetadata{event: event, markets: markets}
	store := newFakeStore()
	chain := &fakeChain{
		logs:       []types.Log{orderFilledLog(120, 3, 0, 555, 1_000_000, 2_000_000)},
		timestamps: map[uint64]uint64{120: 1_700_000_000},
	}

	if _, err := newTestRunner(chain, store, metadata, 100, 200).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := newTestRunner(chain, store, metadata, 100, 200).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.InsertedTrades != 0 {
		t.Fatalf("rerun inserted = %d, want 0", summary.InsertedTrades)
	}
	if len(store.trades) != 1 {
		t.Fatalf("stored trades = %d, want 1", len(store.trades))
	}
	if got := store.cursor["trade_sync"]; got != 200 {
		t.Fatalf("cursor = %d, want 200", got)
	}
}

func TestRunnerSkipsMalformedLog(t *testing.T) {
	event, markets := rainEventPayload()
	metadata := &fakeMetadata{event: event, markets: markets}
	store := newFakeStore()
	chain := &fakeChain{
		logs: []types.Log{
			{Topics: []common.Hash{exchange.OrderFilledTopic()}, BlockNumber: 110},
			orderFilledLog(120, 3, 0, 555, 1_000_000, 2_000_000),
		},
		timestamps: map[uint64]uint64{120: 1_700_000_000},
	}

	summary, err := newTestRunner(chain, store, metadata, 100, 200).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.SkippedMalformed != 1 {
		t.Fatalf("skipped malformed = %d, want 1", summary.SkippedMalformed)
	}
	if summary.InsertedTrades != 1 {
		t.Fatalf("inserted = %d, want 1", summary.InsertedTrades)
	}
}

func TestRunnerDropsUnresolvableToken(t *testing.T) {
	// Discovered markets never cover token 999: discovery runs up front and
	// once more on the resolver's miss, then the trade is dropped.
	event, markets := rainEventPayload()
	metadata := &fakeMetadata{event: event, markets: markets}
	store := newFakeStore()
	chain := &fakeChain{
		logs:       []types.Log{orderFilledLog(120, 3, 0, 999, 1_000_000, 2_000_000)},
		timestamps: map[uint64]uint64{120: 1_700_000_000},
	}

	summary, err := newTestRunner(chain, store, metadata, 100, 200).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.SkippedUnresolved != 1 {
		t.Fatalf("skipped unresolved = %d, want 1", summary.SkippedUnresolved)
	}
	if summary.InsertedTrades != 0 {
		t.Fatalf("inserted = %d, want 0", summary.InsertedTrades)
	}
	if metadata.calls != 2 {
		t.Fatalf("metadata calls = %d, want 2", metadata.calls)
	}
	if got := store.cursor["trade_sync"]; got != 200 {
		t.Fatalf("cursor = %d, want 200", got)
	}
}

func TestRunnerSurvivesMetadataOutage(t *testing.T) {
	// Markets cached by prior runs keep resolving when discovery fails.
	metadata := &fakeMetadata{err: model.ErrMetadataUnavailable}
	store := newFakeStore()
	store.markets["will-it-rain"] = model.Market{
		ID: 42, Slug: "will-it-rain", YesTokenID: "555", NoTokenID: "666",
	}
	chain := &fakeChain{
		logs:       []types.Log{orderFilledLog(120, 3, 0, 555, 1_000_000, 2_000_000)},
		timestamps: map[uint64]uint64{120: 1_700_000_000},
	}

	summary, err := newTestRunner(chain, store, metadata, 100, 200).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.InsertedTrades != 1 {
		t.Fatalf("inserted = %d, want 1", summary.InsertedTrades)
	}
	if summary.MarketDiscovery != nil {
		t.Fatalf("discovery = %+v, want nil", summary.MarketDiscovery)
	}
	if summary.SampleTrades[0].MarketID != 42 {
		t.Fatalf("market id = %d, want 42", summary.SampleTrades[0].MarketID)
	}
}

func TestRunnerResolvesRangeFromTxHash(t *testing.T) {
	txHash := common.HexToHash("0xdead")
	event, markets := rainEventPayload()
	metadata := &fakeMetadata{event: event, markets: markets}
	store := newFakeStore()
	chain := &fakeChain{
		txBlocks:   map[common.Hash]uint64{txHash: 120},
		logs:       []types.Log{orderFilledLog(120, 3, 0, 555, 1_000_000, 2_000_000)},
		timestamps: map[uint64]uint64{120: 1_700_000_000},
	}

	cfg := RunConfig{
		SyncKey:          "trade_sync",
		EventSlug:        "rain",
		Exchanges:        []common.Address{common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4d8dE6bd8B8982E")},
		ChunkSize:        4000,
		FetchConcurrency: 1,
		TxHash:           &txHash,
	}
	summary, err := NewRunner(cfg, chain, store, metadata, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.FromBlock != 120 || summary.ToBlock != 120 {
		t.Fatalf("range = %d-%d, want 120-120", summary.FromBlock, summary.ToBlock)
	}
	if summary.InsertedTrades != 1 {
		t.Fatalf("inserted = %d, want 1", summary.InsertedTrades)
	}
	if chain.headCalls != 0 {
		t.Fatalf("head calls = %d, want 0", chain.headCalls)
	}
}

func TestRunnerResumesFromCursor(t *testing.T) {
	event, markets := rainEventPayload()
	metadata := &fakeMetadata{event: event, markets: markets}
	store := newFakeStore()
	store.cursor["trade_sync"] = 150
	chain := &fakeChain{head: 300}

	cfg := RunConfig{
		SyncKey:          "trade_sync",
		EventSlug:        "rain",
		Exchanges:        []common.Address{common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4d8dE6bd8B8982E")},
		ChunkSize:        4000,
		FetchConcurrency: 1,
	}
	summary, err := NewRunner(cfg, chain, store, metadata, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.FromBlock != 151 || summary.ToBlock != 300 {
		t.Fatalf("range = %d-%d, want 151-300", summary.FromBlock, summary.ToBlock)
	}
	if got := store.cursor["trade_sync"]; got != 300 {
		t.Fatalf("cursor = %d, want 300", got)
	}
}

func TestRunnerValidatesConfig(t *testing.T) {
	store := newFakeStore()
	chain := &fakeChain{}

	cfg := RunConfig{SyncKey: "trade_sync"}
	if _, err := NewRunner(cfg, chain, store, &fakeMetadata{}, nil).Run(context.Background()); err == nil {
		t.Fatal("missing exchanges must fail")
	}

	cfg = RunConfig{Exchanges: []common.Address{{}}}
	if _, err := NewRunner(cfg, chain, store, &fakeMetadata{}, nil).Run(context.Background()); err == nil {
		t.Fatal("missing sync key must fail")
	}
}

func TestClassifyOutcome(t *testing.T) {
	market := &model.Market{YesTokenID: "555", NoTokenID: "0x29a"} // 0x29a == 666
	cases := []struct {
		tokenID string
		want    string
	}{
		{"555", model.OutcomeYes},
		{"666", model.OutcomeNo},
		{"777", model.OutcomeUnknown},
		{"", model.OutcomeUnknown},
	}
	for _, tc := range cases {
		if got := classifyOutcome(tc.tokenID, market); got != tc.want {
			t.Fatalf("classifyOutcome(%q) = %s, want %s", tc.tokenID, got, tc.want)
		}
	}
}
