// Package indexer connects one network's verified log stream to the
// projection pipeline: decode each log, stamp it with its block time, and
// apply it. Undecodable logs and failed projections are logged and skipped;
// they never stall the stream.
package indexer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/willwe-labs/willwe-indexer/internal/contracts"
	"github.com/willwe-labs/willwe-indexer/internal/events"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/metrics"
	"github.com/willwe-labs/willwe-indexer/internal/projector"
	"github.com/willwe-labs/willwe-indexer/internal/store"
)

// GovernanceIndexer indexes the WillWe governance contracts for one network.
type GovernanceIndexer struct {
	network    string
	startBlock uint64
	registry   *contracts.Registry
	decoder    *events.Decoder
	projector  *projector.Projector
	store      *store.Store
	log        *logger.Logger
}

func New(
	network string,
	startBlock uint64,
	registry *contracts.Registry,
	decoder *events.Decoder,
	proj *projector.Projector,
	projectionStore *store.Store,
	log *logger.Logger,
) *GovernanceIndexer {
	return &GovernanceIndexer{
		network:    network,
		startBlock: startBlock,
		registry:   registry,
		decoder:    decoder,
		projector:  proj,
		store:      projectionStore,
		log:        log.WithComponent("indexer"),
	}
}

// StartBlock is the first block this network's deployment emits events at.
func (i *GovernanceIndexer) StartBlock() uint64 {
	return i.startBlock
}

// EventsToIndex returns the address-to-topic filter for this network's
// deployment.
func (i *GovernanceIndexer) EventsToIndex() (map[common.Address]map[common.Hash]struct{}, error) {
	return i.registry.EventsToIndex(i.network)
}

// HandleLogs processes one verified block range in log order.
func (i *GovernanceIndexer) HandleLogs(ctx context.Context, logs []ethtypes.Log, headers []*ethtypes.Header) error {
	started := time.Now()

	timestamps := make(map[uint64]int64, len(headers))
	for _, header := range headers {
		timestamps[header.Number.Uint64()] = int64(header.Time)
	}

	for idx := range logs {
		log := &logs[idx]

		meta, decoded, err := i.decoder.Decode(i.network, log)
		if err != nil {
			// foreign or malformed log; record it and move on
			i.log.Warnw("skipping undecodable log",
				"network", i.network, "event_id", meta.EventID, "error", err)
			continue
		}
		meta.Timestamp = timestamps[log.BlockNumber]

		if err := i.projector.Apply(ctx, meta, decoded); err != nil {
			i.log.Errorw("projection failed",
				"network", i.network,
				"event", decoded.EventName(),
				"event_id", meta.EventID,
				"error", err,
			)
			continue
		}
	}

	metrics.BlockProcessingTimeLog(i.network, time.Since(started))

	return nil
}

// HandleReorg deletes all append-only projection rows at or after the fork
// block. The mutable node aggregates are repaired by the replay.
func (i *GovernanceIndexer) HandleReorg(firstReorgBlock uint64) error {
	i.log.Warnw("rolling back projection", "network", i.network, "from_block", firstReorgBlock)
	return i.store.Rollback(i.network, firstReorgBlock)
}
