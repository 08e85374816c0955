package model

import "errors"

// Sentinel errors for the indexing pipeline. Callers match with errors.Is.
var (
	// ErrMalformedLog marks a log that cannot be decoded (too few topics or
	// undersized/misaligned data). Per-log and recoverable: skip and continue.
	ErrMalformedLog = errors.New("malformed log")

	// ErrMetadataNotFound means no gamma endpoint yielded a usable event
	// object for the slug after all fallbacks.
	ErrMetadataNotFound = errors.New("metadata not found")

	// ErrMetadataUnavailable means the metadata service kept failing after
	// the configured retry budget was exhausted.
	ErrMetadataUnavailable = errors.New("metadata unavailable")

	// ErrLogFetchFailed marks a failed eth_getLogs chunk. Fatal to the run:
	// partial results are never committed.
	ErrLogFetchFailed = errors.New("log fetch failed")

	// ErrInvalidRange means the resolved from block exceeds the to block.
	ErrInvalidRange = errors.New("invalid block range")

	// ErrUnresolvableToken means a token id matched no market even after a
	// discovery attempt. The individual trade is dropped, the run continues.
	ErrUnresolvableToken = errors.New("unresolvable token id")
)
