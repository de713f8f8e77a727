package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// appendOnlyTables are the tables whose rows are deleted on a reorg.
// The nodes table is intentionally absent: node rows are mutable aggregates
// and the replayed stream's idempotent upserts repair them in place.
var appendOnlyTables = []string{
	eventsTable,
	membershipsTable,
	nodeSignalsTable,
	membraneSignalsTable,
	inflationSignalsTable,
	movementsTable,
	signatureQueuesTable,
	signaturesTable,
	membranesTable,
	endpointsTable,
}

// Rollback removes every projection row derived from blocks at or after the
// fork point on one network. The stream then replays from the fork block.
func (s *Store) Rollback(network string, fromBlock uint64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rollback transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	var totalDeleted int64
	for _, table := range appendOnlyTables {
		query := fmt.Sprintf("DELETE FROM %s WHERE network = ? AND created_block_number >= ?", table)
		result, err := tx.Exec(query, network, fromBlock)
		if err != nil {
			return fmt.Errorf("failed to delete %s rows: %w", table, err)
		}
		deleted, _ := result.RowsAffected()
		totalDeleted += deleted
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback: %w", err)
	}

	s.log.Infof("rolled back %s from block %d: deleted %d projection rows",
		network, fromBlock, totalDeleted)

	return nil
}
