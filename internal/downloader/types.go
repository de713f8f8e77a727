package downloader

import (
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// FetchMode is the operating mode of the log fetcher.
type FetchMode string

const (
	// ModeBackfill fetches historical blocks from the start block up to
	// the finalized head
	ModeBackfill FetchMode = "backfill"

	// ModeLive tails new blocks as they finalize
	ModeLive FetchMode = "live"
)

func (m FetchMode) String() string {
	return string(m)
}

// FetchResult is one successfully fetched and reorg-verified block range.
type FetchResult struct {
	Logs    []ethtypes.Log
	Headers []*ethtypes.Header

	FromBlock uint64
	ToBlock   uint64
}
