// Package reorg tracks recent block hashes per network and refuses to hand
// logs downstream when the chain under them has moved. Detection is cheap:
// every fetched range is checked against the stored non-finalized hashes,
// the hashes carried by the logs themselves, and parent-hash continuity.
package reorg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/russross/meddler"

	internalcommon "github.com/willwe-labs/willwe-indexer/internal/common"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/types"
)

// HeaderSource is the chain surface the detector needs.
type HeaderSource interface {
	GetFinalizedBlockHeader(ctx context.Context) (*ethtypes.Header, error)
	GetSafeBlockHeader(ctx context.Context) (*ethtypes.Header, error)
	GetLatestBlockHeader(ctx context.Context) (*ethtypes.Header, error)
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*ethtypes.Header, error)
}

// Detector tracks block hashes for one network in its downloader database.
type Detector struct {
	db           *sql.DB
	client       HeaderSource
	log          *logger.Logger
	network      string
	finality     types.BlockFinality
	finalizedLag uint64
}

func NewDetector(
	database *sql.DB,
	client HeaderSource,
	network string,
	finality types.BlockFinality,
	finalizedLag uint64,
	log *logger.Logger,
) *Detector {
	return &Detector{
		db:           database,
		client:       client,
		log:          log.WithComponent(internalcommon.ComponentReorgDetector),
		network:      network,
		finality:     finality,
		finalizedLag: finalizedLag,
	}
}

// VerifyAndRecordBlocks checks a fetched range for reorgs and records its
// block hashes. Steps:
//  1. prune hashes at or below the finalized head
//  2. re-check every stored non-finalized hash against the chain
//  3. fetch headers for the new range, cross-check against the log hashes
//     and parent-hash continuity
//  4. record the new hashes
//
// All database writes happen in one transaction. A *ReorgDetectedError
// return means the caller must roll back to FirstReorgBlock.
func (d *Detector) VerifyAndRecordBlocks(
	ctx context.Context, logs []ethtypes.Log, fromBlock, toBlock uint64,
) ([]*ethtypes.Header, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			d.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	finalizedBlockNum, err := d.finalizedBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get finalized block: %w", err)
	}

	if err := d.pruneFinalizedTx(tx, finalizedBlockNum); err != nil {
		return nil, err
	}

	if err := d.verifyStoredBlocksTx(ctx, tx, finalizedBlockNum); err != nil {
		return nil, err
	}

	blockNums := make([]uint64, 0, toBlock-fromBlock+1)
	for blockNum := fromBlock; blockNum <= toBlock; blockNum++ {
		if blockNum > finalizedBlockNum {
			blockNums = append(blockNums, blockNum)
		}
	}
	if len(blockNums) == 0 {
		// the whole range is final, nothing to track
		return nil, tx.Commit()
	}

	headers, err := d.client.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers for range: %w", err)
	}

	if err := d.verifyRange(logs, headers, finalizedBlockNum); err != nil {
		return nil, err
	}

	if err := d.recordBlocksTx(tx, headers); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	trackedBlocks.WithLabelValues(d.network).Add(float64(len(headers)))

	return headers, nil
}

// finalizedBlockNumber resolves the block number this network treats as
// final, per the configured finality mode.
func (d *Detector) finalizedBlockNumber(ctx context.Context) (uint64, error) {
	switch d.finality {
	case types.FinalitySafe:
		header, err := d.client.GetSafeBlockHeader(ctx)
		if err != nil {
			return 0, err
		}
		return header.Number.Uint64(), nil
	case types.FinalityLatest:
		header, err := d.client.GetLatestBlockHeader(ctx)
		if err != nil {
			return 0, err
		}
		latest := header.Number.Uint64()
		if latest <= d.finalizedLag {
			return 0, nil
		}
		return latest - d.finalizedLag, nil
	default:
		header, err := d.client.GetFinalizedBlockHeader(ctx)
		if err != nil {
			return 0, err
		}
		return header.Number.Uint64(), nil
	}
}

// verifyStoredBlocksTx re-checks every stored non-finalized hash against
// the chain's current view.
func (d *Detector) verifyStoredBlocksTx(ctx context.Context, tx *sql.Tx, finalizedBlockNum uint64) error {
	stored, err := d.getStoredBlocksAfterTx(tx, finalizedBlockNum)
	if err != nil {
		return fmt.Errorf("failed to get non-finalized blocks: %w", err)
	}
	if len(stored) == 0 {
		return nil
	}

	blockNums := make([]uint64, len(stored))
	for i, block := range stored {
		blockNums[i] = block.BlockNumber
	}

	current, err := d.client.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return fmt.Errorf("failed to fetch non-finalized headers: %w", err)
	}

	for i, header := range current {
		if stored[i].BlockHash != header.Hash() {
			blockNum := header.Number.Uint64()
			d.log.Warnw("reorg detected in tracked blocks",
				"network", d.network,
				"block", blockNum,
				"stored_hash", stored[i].BlockHash.Hex(),
				"current_hash", header.Hash().Hex(),
			)
			reorgDetected(d.network, uint64(len(stored)-i))
			return NewReorgError(blockNum,
				fmt.Sprintf("stored_hash=%s current_hash=%s", stored[i].BlockHash.Hex(), header.Hash().Hex()))
		}
	}

	return nil
}

// verifyRange cross-checks the fetched logs against the fetched headers and
// the headers against each other.
func (d *Detector) verifyRange(logs []ethtypes.Log, headers []*ethtypes.Header, finalizedBlockNum uint64) error {
	logBlockHashes := make(map[uint64]common.Hash)
	for _, log := range logs {
		if log.BlockNumber > finalizedBlockNum {
			logBlockHashes[log.BlockNumber] = log.BlockHash
		}
	}

	for i, header := range headers {
		blockNum := header.Number.Uint64()
		headerHash := header.Hash()

		// a mismatch here means the chain moved between the two RPC calls
		if logHash, exists := logBlockHashes[blockNum]; exists && logHash != headerHash {
			d.log.Warnw("reorg detected during fetch",
				"network", d.network,
				"block", blockNum,
				"log_hash", logHash.Hex(),
				"header_hash", headerHash.Hex(),
			)
			reorgDetected(d.network, uint64(len(headers)-i))
			return NewReorgError(blockNum,
				fmt.Sprintf("log_hash=%s header_hash=%s", logHash.Hex(), headerHash.Hex()))
		}
	}

	for i := 1; i < len(headers); i++ {
		if headers[i].ParentHash != headers[i-1].Hash() {
			blockNum := headers[i].Number.Uint64()
			d.log.Warnw("chain discontinuity detected",
				"network", d.network,
				"block", blockNum,
				"expected_parent", headers[i-1].Hash().Hex(),
				"actual_parent", headers[i].ParentHash.Hex(),
			)
			reorgDetected(d.network, uint64(len(headers)-i))
			return NewReorgError(blockNum,
				fmt.Sprintf("chain discontinuity between blocks %d and %d",
					headers[i-1].Number.Uint64(), blockNum))
		}
	}

	return nil
}

// StoredBlock is one tracked block hash row.
type StoredBlock struct {
	BlockNumber uint64      `meddler:"block_number"`
	BlockHash   common.Hash `meddler:"block_hash,hash"`
	ParentHash  common.Hash `meddler:"parent_hash,hash"`
}

func (d *Detector) getStoredBlocksAfterTx(tx *sql.Tx, finalizedBlockNum uint64) ([]*StoredBlock, error) {
	var blocks []*StoredBlock
	err := meddler.QueryAll(tx, &blocks,
		"SELECT * FROM block_hashes WHERE block_number > ? ORDER BY block_number ASC",
		finalizedBlockNum)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (d *Detector) recordBlocksTx(tx *sql.Tx, headers []*ethtypes.Header) error {
	for _, header := range headers {
		_, err := tx.Exec(`
			INSERT INTO block_hashes (block_number, block_hash, parent_hash)
			VALUES (?, ?, ?)
			ON CONFLICT (block_number) DO UPDATE SET
				block_hash = excluded.block_hash,
				parent_hash = excluded.parent_hash`,
			header.Number.Uint64(), header.Hash().Hex(), header.ParentHash.Hex())
		if err != nil {
			return fmt.Errorf("failed to insert block %d: %w", header.Number.Uint64(), err)
		}
	}
	return nil
}

func (d *Detector) pruneFinalizedTx(tx *sql.Tx, finalizedBlockNum uint64) error {
	result, err := tx.Exec("DELETE FROM block_hashes WHERE block_number <= ?", finalizedBlockNum)
	if err != nil {
		return fmt.Errorf("failed to prune finalized blocks: %w", err)
	}

	if deleted, _ := result.RowsAffected(); deleted > 0 {
		trackedBlocks.WithLabelValues(d.network).Sub(float64(deleted))
		d.log.Debugw("pruned finalized block hashes",
			"network", d.network, "finalized_block", finalizedBlockNum, "deleted", deleted)
	}

	return nil
}
