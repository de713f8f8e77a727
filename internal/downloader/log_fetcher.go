package downloader

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/reorg"
	"github.com/willwe-labs/willwe-indexer/internal/rpc"
	itypes "github.com/willwe-labs/willwe-indexer/internal/types"
)

// livePollInterval is how long the live tail waits when fully caught up.
const livePollInterval = 12 * time.Second

// LogClient is the chain surface the fetcher needs.
type LogClient interface {
	reorg.HeaderSource
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error)
}

// LogFetcherConfig configures one network's log fetcher.
type LogFetcherConfig struct {
	// ChunkSize is the number of blocks per eth_getLogs request
	ChunkSize uint64

	// Finality selects which head to trust
	Finality itypes.BlockFinality

	// FinalizedLag is blocks behind head to treat as final (latest mode)
	FinalizedLag uint64

	// Addresses are the contract addresses to filter
	Addresses []common.Address

	// Topics are the event topic filters
	Topics [][]common.Hash
}

// LogFetcher fetches contract logs chunk by chunk, verifying every range
// through the reorg detector before handing it on.
type LogFetcher struct {
	cfg      LogFetcherConfig
	client   LogClient
	detector *reorg.Detector
	log      *logger.Logger
	mode     FetchMode
}

func NewLogFetcher(cfg LogFetcherConfig, client LogClient, detector *reorg.Detector, log *logger.Logger) *LogFetcher {
	return &LogFetcher{
		cfg:      cfg,
		client:   client,
		detector: detector,
		log:      log.WithComponent("log-fetcher"),
		mode:     ModeBackfill,
	}
}

// SetMode changes the fetcher's operating mode.
func (lf *LogFetcher) SetMode(mode FetchMode) {
	if lf.mode != mode {
		lf.log.Infow("switching fetch mode", "from", lf.mode, "to", mode)
	}
	lf.mode = mode
}

// GetMode returns the current operating mode.
func (lf *LogFetcher) GetMode() FetchMode {
	return lf.mode
}

// FetchNext fetches the next chunk based on the current mode. Backfill walks
// historical ranges up to the finalized head, then flips to live tailing.
func (lf *LogFetcher) FetchNext(ctx context.Context, lastIndexedBlock uint64) (*FetchResult, error) {
	switch lf.mode {
	case ModeBackfill:
		return lf.fetchBackfill(ctx, lastIndexedBlock)
	case ModeLive:
		return lf.fetchLive(ctx, lastIndexedBlock)
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s", lf.mode)
	}
}

// FetchRange fetches logs and headers for one verified block range.
func (lf *LogFetcher) FetchRange(ctx context.Context, fromBlock, toBlock uint64) (*FetchResult, error) {
	logs, err := lf.getLogsSplitting(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}

	if _, err := lf.detector.VerifyAndRecordBlocks(ctx, logs, fromBlock, toBlock); err != nil {
		return nil, err
	}

	// headers come after verification so the pipeline gets timestamps from
	// the same chain view the detector accepted
	blockNumbers := make([]uint64, 0, toBlock-fromBlock+1)
	for blockNum := fromBlock; blockNum <= toBlock; blockNum++ {
		blockNumbers = append(blockNumbers, blockNum)
	}

	headers, err := lf.client.BatchGetBlockHeaders(ctx, blockNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers: %w", err)
	}

	lf.log.Debugw("fetched range",
		"from_block", fromBlock,
		"to_block", toBlock,
		"logs", len(logs),
		"blocks", len(headers),
		"mode", lf.mode,
	)

	return &FetchResult{
		Logs:      logs,
		Headers:   headers,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	}, nil
}

// getLogsSplitting runs eth_getLogs over the range, shrinking the window on
// provider "too many results" errors and stitching the pieces back together.
func (lf *LogFetcher) getLogsSplitting(ctx context.Context, fromBlock, toBlock uint64) ([]ethtypes.Log, error) {
	var all []ethtypes.Log

	start := fromBlock
	end := toBlock
	for start <= toBlock {
		logs, err := lf.client.GetLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: lf.cfg.Addresses,
			Topics:    lf.cfg.Topics,
		})
		if err != nil {
			if tooMany, payload := rpc.IsTooManyResultsError(err); tooMany {
				if suggestedFrom, suggestedTo, ok := rpc.ParseSuggestedBlockRange(payload); ok &&
					suggestedFrom == start && suggestedTo < end {
					lf.log.Debugw("provider suggested smaller range",
						"from", start, "to", end, "suggested_to", suggestedTo)
					end = suggestedTo
					continue
				}
				// no usable suggestion, halve the window
				if end > start {
					end = start + (end-start)/2
					continue
				}
			}
			return nil, err
		}

		all = append(all, logs...)
		if end >= toBlock {
			break
		}
		start = end + 1
		end = toBlock
	}

	return all, nil
}

func (lf *LogFetcher) fetchBackfill(ctx context.Context, lastIndexedBlock uint64) (*FetchResult, error) {
	finalizedBlock, err := lf.getFinalizedBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get finalized block: %w", err)
	}

	fromBlock := lastIndexedBlock + 1
	if fromBlock > finalizedBlock {
		lf.log.Info("backfill complete, switching to live mode")
		lf.mode = ModeLive
		return lf.fetchLive(ctx, lastIndexedBlock)
	}

	toBlock := min(fromBlock+lf.cfg.ChunkSize-1, finalizedBlock)

	return lf.FetchRange(ctx, fromBlock, toBlock)
}

func (lf *LogFetcher) fetchLive(ctx context.Context, lastIndexedBlock uint64) (*FetchResult, error) {
	for {
		finalizedBlock, err := lf.getFinalizedBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get finalized block: %w", err)
		}

		fromBlock := lastIndexedBlock + 1
		if fromBlock <= finalizedBlock {
			toBlock := finalizedBlock
			if toBlock-fromBlock+1 > lf.cfg.ChunkSize {
				toBlock = fromBlock + lf.cfg.ChunkSize - 1
			}
			return lf.FetchRange(ctx, fromBlock, toBlock)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(livePollInterval):
		}
	}
}

func (lf *LogFetcher) getFinalizedBlock(ctx context.Context) (uint64, error) {
	switch lf.cfg.Finality {
	case itypes.FinalitySafe:
		header, err := lf.client.GetSafeBlockHeader(ctx)
		if err != nil {
			return 0, err
		}
		return header.Number.Uint64(), nil
	case itypes.FinalityLatest:
		header, err := lf.client.GetLatestBlockHeader(ctx)
		if err != nil {
			return 0, err
		}
		latest := header.Number.Uint64()
		if latest <= lf.cfg.FinalizedLag {
			return 0, nil
		}
		return latest - lf.cfg.FinalizedLag, nil
	case itypes.FinalityFinalized:
		header, err := lf.client.GetFinalizedBlockHeader(ctx)
		if err != nil {
			return 0, err
		}
		return header.Number.Uint64(), nil
	default:
		return 0, fmt.Errorf("invalid finality mode: %s", lf.cfg.Finality)
	}
}
