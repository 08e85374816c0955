// Package exchange decodes CTF Exchange OrderFilled logs into canonical
// trades. Decoding is pure: no I/O, no state, same log in, same trade out.
package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"tradeScope/internal/model"
)

// OrderFilledSignature is the only event layout this decoder handles.
const OrderFilledSignature = "OrderFilled(bytes32,address,address,uint256,uint256,uint256,uint256,uint256)"

// Outcome tokens use 6-decimal fixed point (USDC scale).
const tokenDecimals = 6

// pricePrecision bounds division for non-terminating price ratios.
const pricePrecision = 40

const wordSize = 32

// OrderFilledTopic returns topic0 for the OrderFilled event.
func OrderFilledTopic() common.Hash {
	return crypto.Keccak256Hash([]byte(OrderFilledSignature))
}

// DecodeOrderFilled decodes one OrderFilled log into a canonical trade.
// It fails with model.ErrMalformedLog when the log has fewer than 3 topics
// or a data payload that is misaligned or shorter than 6 words. MarketID,
// Outcome and Timestamp are left for the orchestrator to fill in.
func DecodeOrderFilled(lg types.Log) (model.Trade, error) {
	if len(lg.Topics) < 3 {
		return model.Trade{}, fmt.Errorf("%w: %d topics, need at least 3", model.ErrMalformedLog, len(lg.Topics))
	}

	words, err := splitDataWords(lg.Data)
	if err != nil {
		return model.Trade{}, err
	}
	if len(words) < 6 {
		return model.Trade{}, fmt.Errorf("%w: data payload has %d words, need at least 6", model.ErrMalformedLog, len(words))
	}

	orderHash := words[0]
	makerAssetID := words[1]
	takerAssetID := words[2]
	makerAmountFilled := words[3]
	takerAmountFilled := words[4]
	fee := words[5]

	// assetId 0 is the collateral asset; non-zero is an outcome token id.
	// Any case where the maker is not paying pure collateral classifies as
	// SELL. Fixed tie-break, not configurable: both-zero and both-non-zero
	// fall through to SELL.
	side := model.SideSell
	if makerAssetID.Sign() == 0 && takerAssetID.Sign() != 0 {
		side = model.SideBuy
	}

	tokenID := makerAssetID
	tokenAmount := makerAmountFilled
	collateralAmount := takerAmountFilled
	if side == model.SideBuy {
		tokenID = takerAssetID
		tokenAmount = takerAmountFilled
		collateralAmount = makerAmountFilled
	}

	size := decimal.Zero
	price := decimal.Zero
	if tokenAmount.Sign() != 0 {
		size = decimal.NewFromBigInt(tokenAmount, -tokenDecimals)
		price = decimal.NewFromBigInt(collateralAmount, 0).
			DivRound(decimal.NewFromBigInt(tokenAmount, 0), pricePrecision)
	}

	return model.Trade{
		TxHash:            lg.TxHash.Hex(),
		LogIndex:          uint64(lg.Index),
		BlockNumber:       lg.BlockNumber,
		BlockHash:         lg.BlockHash.Hex(),
		Maker:             topicToAddress(lg.Topics[1]),
		Taker:             topicToAddress(lg.Topics[2]),
		Side:              side,
		Outcome:           model.OutcomeUnknown,
		Price:             price.String(),
		Size:              size.String(),
		TokenID:           tokenID.String(),
		MakerAssetID:      makerAssetID.String(),
		TakerAssetID:      takerAssetID.String(),
		MakerAmountFilled: makerAmountFilled.String(),
		TakerAmountFilled: takerAmountFilled.String(),
		ExchangeAddress:   lg.Address.Hex(),
		OrderHash:         fmt.Sprintf("0x%064x", orderHash),
		Fee:               fee.String(),
	}, nil
}

// splitDataWords slices the data payload into ordered 32-byte words.
func splitDataWords(data []byte) ([]*big.Int, error) {
	if len(data)%wordSize != 0 {
		return nil, fmt.Errorf("%w: data length %d is not a multiple of %d", model.ErrMalformedLog, len(data), wordSize)
	}
	words := make([]*big.Int, 0, len(data)/wordSize)
	for i := 0; i < len(data); i += wordSize {
		words = append(words, new(big.Int).SetBytes(data[i:i+wordSize]))
	}
	return words, nil
}

// topicToAddress takes the low 20 bytes of a 32-byte topic word.
func topicToAddress(topic common.Hash) string {
	return "0x" + common.Bytes2Hex(topic.Bytes()[12:])
}
