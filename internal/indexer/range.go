package indexer

import (
	"context"
	"fmt"

	"tradeScope/internal/model"
)

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// headLookback is how far behind the chain head an uncursored run starts.
const headLookback = 10

// RangeOptions are the inputs to ResolveRange. Nil pointers mean unset.
// Cursor and Head are invoked lazily, only when a bound cannot be resolved
// from the explicit values.
type RangeOptions struct {
	From    *uint64
	To      *uint64
	TxBlock *uint64
	Cursor  func(ctx context.Context) (uint64, bool, error)
	Head    func(ctx context.Context) (uint64, error)
}

// ResolveRange computes the scan window. Precedence: a reference
// transaction's block fills any unset bound; if only from ends up set, to
// defaults to the same value (single-block scan); an unset from resumes at
// cursor+1 when a cursor exists, else chain head minus a small lookback; an
// unset to defaults to the chain head. Fails with model.ErrInvalidRange
// before any log I/O when from exceeds to.
func ResolveRange(ctx context.Context, opts RangeOptions) (BlockRange, error) {
	from := opts.From
	to := opts.To

	if opts.TxBlock != nil {
		if from == nil {
			from = opts.TxBlock
		}
		if to == nil {
			to = opts.TxBlock
		}
	}

	if from != nil && to == nil {
		to = from
	}

	var cachedHead *uint64
	head := func() (uint64, error) {
		if cachedHead != nil {
			return *cachedHead, nil
		}
		if opts.Head == nil {
			return 0, fmt.Errorf("chain head lookup is required to resolve the range")
		}
		h, err := opts.Head(ctx)
		if err != nil {
			return 0, fmt.Errorf("get chain head: %w", err)
		}
		cachedHead = &h
		return h, nil
	}

	if from == nil {
		if opts.Cursor != nil {
			last, ok, err := opts.Cursor(ctx)
			if err != nil {
				return BlockRange{}, fmt.Errorf("read sync cursor: %w", err)
			}
			if ok {
				next := last + 1
				from = &next
			}
		}
		if from == nil {
			h, err := head()
			if err != nil {
				return BlockRange{}, err
			}
			start := uint64(0)
			if h > headLookback {
				start = h - headLookback
			}
			from = &start
		}
	}

	if to == nil {
		h, err := head()
		if err != nil {
			return BlockRange{}, err
		}
		to = &h
	}

	if *from > *to {
		return BlockRange{}, fmt.Errorf("%w: from %d > to %d", model.ErrInvalidRange, *from, *to)
	}
	return BlockRange{From: *from, To: *to}, nil
}

// SplitRange splits a block range into consecutive chunks of size chunkSize.
func SplitRange(from, to, chunkSize uint64) ([]BlockRange, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= chunkSize {
			end = to
		} else {
			end = start + chunkSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
