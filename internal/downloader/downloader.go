// Package downloader drives one network's download loop: fetch a verified
// chunk of logs, hand it to the indexer, checkpoint, repeat. On a detected
// reorg it rolls the indexer and the checkpoint back to the fork point and
// resumes in backfill mode.
package downloader

import (
	"context"
	"errors"
	"fmt"

	ethtypes "github.com/ethereum/go-ethereum/core/types"

	internalcommon "github.com/willwe-labs/willwe-indexer/internal/common"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/metrics"
	"github.com/willwe-labs/willwe-indexer/internal/reorg"
)

// Indexer consumes ordered, reorg-verified logs for one network.
type Indexer interface {
	// StartBlock is the first block the indexer needs.
	StartBlock() uint64

	// HandleLogs processes one verified range in order. Headers cover the
	// entire range and carry the block timestamps.
	HandleLogs(ctx context.Context, logs []ethtypes.Log, headers []*ethtypes.Header) error

	// HandleReorg discards all projected state at or after firstReorgBlock.
	HandleReorg(firstReorgBlock uint64) error
}

// Downloader runs the download loop for one network.
type Downloader struct {
	network     string
	fetcher     *LogFetcher
	syncManager *SyncManager
	indexer     Indexer
	log         *logger.Logger
}

func New(
	network string,
	fetcher *LogFetcher,
	syncManager *SyncManager,
	indexer Indexer,
	log *logger.Logger,
) (*Downloader, error) {
	if fetcher == nil {
		return nil, errors.New("log fetcher is required")
	}
	if syncManager == nil {
		return nil, errors.New("sync manager is required")
	}
	if indexer == nil {
		return nil, errors.New("indexer is required")
	}

	return &Downloader{
		network:     network,
		fetcher:     fetcher,
		syncManager: syncManager,
		indexer:     indexer,
		log:         log.WithComponent(internalcommon.ComponentDownloader),
	}, nil
}

// Download runs until the context is cancelled or a non-reorg error occurs.
func (d *Downloader) Download(ctx context.Context) error {
	state, err := d.syncManager.GetState()
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	lastIndexedBlock := state.LastIndexedBlock
	if lastIndexedBlock == 0 {
		lastIndexedBlock = d.indexer.StartBlock() - 1
		d.log.Infow("starting fresh download", "network", d.network, "start_block", lastIndexedBlock+1)
	} else {
		d.log.Infow("resuming download", "network", d.network, "last_indexed_block", lastIndexedBlock)
	}

	d.fetcher.SetMode(FetchMode(state.Mode))
	if state.Mode == "" {
		d.fetcher.SetMode(ModeBackfill)
	}

	for {
		select {
		case <-ctx.Done():
			d.log.Infow("download cancelled", "network", d.network)
			return ctx.Err()
		default:
		}

		result, err := d.fetcher.FetchNext(ctx, lastIndexedBlock)
		if err != nil {
			var reorgErr *reorg.ReorgDetectedError
			if errors.As(err, &reorgErr) {
				if err := d.handleReorg(reorgErr.FirstReorgBlock); err != nil {
					return fmt.Errorf("failed to handle reorg: %w", err)
				}
				lastIndexedBlock = reorgErr.FirstReorgBlock - 1
				continue
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("failed to fetch logs: %w", err)
		}

		if len(result.Logs) > 0 {
			if err := d.indexer.HandleLogs(ctx, result.Logs, result.Headers); err != nil {
				return fmt.Errorf("failed to handle logs: %w", err)
			}
		}

		lastHash := result.Headers[len(result.Headers)-1].Hash()
		if err := d.syncManager.SaveCheckpoint(result.ToBlock, lastHash, d.fetcher.GetMode()); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}

		lastIndexedBlock = result.ToBlock
		metrics.LastIndexedBlockSet(d.network, result.ToBlock)
		metrics.BlocksProcessedAdd(d.network, result.ToBlock-result.FromBlock+1)
		metrics.LogsIndexedAdd(d.network, uint64(len(result.Logs)))
	}
}

// handleReorg rolls the projection and the checkpoint back to just before
// the fork point.
func (d *Downloader) handleReorg(firstReorgBlock uint64) error {
	d.log.Warnw("handling reorg", "network", d.network, "first_reorg_block", firstReorgBlock)

	if err := d.indexer.HandleReorg(firstReorgBlock); err != nil {
		return fmt.Errorf("failed to roll back indexer: %w", err)
	}

	rollbackTo := firstReorgBlock - 1
	if err := d.syncManager.Reset(rollbackTo); err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}

	d.fetcher.SetMode(ModeBackfill)

	d.log.Infow("reorg handled, resuming", "network", d.network, "block", rollbackTo)

	return nil
}

// Close releases the downloader database.
func (d *Downloader) Close() error {
	return d.syncManager.Close()
}
