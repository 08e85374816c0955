package model

// MarketDiscovery reports the outcome of one metadata discovery pass.
type MarketDiscovery struct {
	EventSlug string  `json:"event_slug"`
	EventID   int64   `json:"event_id"`
	MarketIDs []int64 `json:"market_ids"`
}

// RunSummary describes one completed indexing run.
type RunSummary struct {
	FromBlock         uint64           `json:"from_block"`
	ToBlock           uint64           `json:"to_block"`
	InsertedTrades    int64            `json:"inserted_trades"`
	EventSlug         string           `json:"event_slug,omitempty"`
	MarketID          int64            `json:"market_id,omitempty"`
	SampleTrades      []Trade          `json:"sample_trades"`
	MarketDiscovery   *MarketDiscovery `json:"market_discovery,omitempty"`
	SkippedMalformed  int              `json:"skipped_malformed"`
	SkippedUnresolved int              `json:"skipped_unresolved"`
}
