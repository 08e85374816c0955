package model

import "time"

// Trade sides as classified by the fill decoder.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade outcomes relative to the resolved market's YES/NO token ids.
const (
	OutcomeYes     = "YES"
	OutcomeNo      = "NO"
	OutcomeUnknown = "UNKNOWN"
)

// Trade is one decoded OrderFilled event. (TxHash, LogIndex) is the sole
// de-duplication key; Price and Size are canonical minimal decimal strings.
// OrderHash and Fee are decode outputs carried for logging and summaries but
// not persisted.
type Trade struct {
	ID                int64  `json:"id"`
	MarketID          int64  `json:"market_id"`
	TxHash            string `json:"tx_hash"`
	LogIndex          uint64 `json:"log_index"`
	BlockNumber       uint64 `json:"block_number"`
	BlockHash         string `json:"block_hash"`
	Timestamp         string `json:"timestamp"`
	Maker             string `json:"maker"`
	Taker             string `json:"taker"`
	Side              string `json:"side"`
	Outcome           string `json:"outcome"`
	Price             string `json:"price"`
	Size              string `json:"size"`
	TokenID           string `json:"token_id"`
	MakerAssetID      string `json:"maker_asset_id"`
	TakerAssetID      string `json:"taker_asset_id"`
	MakerAmountFilled string `json:"maker_amount_filled"`
	TakerAmountFilled string `json:"taker_amount_filled"`
	ExchangeAddress   string `json:"exchange_address"`
	CreatedAt         string `json:"created_at,omitempty"`
	OrderHash         string `json:"order_hash,omitempty"`
	Fee               string `json:"fee,omitempty"`
}

// TradeQuery narrows and paginates trade listings. FromBlock and ToBlock are
// inclusive; nil means unbounded. Results are ordered block number descending
// then log index descending.
type TradeQuery struct {
	Limit     int
	Offset    int
	FromBlock *uint64
	ToBlock   *uint64
}

// ISOTimestampLayout is the naive-UTC form trades are stored with.
const ISOTimestampLayout = "2006-01-02T15:04:05"

// ISOFromUnix renders a unix timestamp as a naive-UTC ISO-8601 string.
func ISOFromUnix(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format(ISOTimestampLayout)
}
