// Package identity derives deterministic identifiers for indexed events.
// Replaying the same logs always yields the same identifiers, which is what
// makes every downstream write idempotent.
package identity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// EventID returns the canonical identifier for a log: "{txHash}-{logIndex}".
// Logs without a transaction hash (some providers omit it for pending or
// system logs) fall back to "tx-{blockHash}-{blockNumber}-{logIndex}",
// which is still unique within a chain.
func EventID(log *ethtypes.Log) string {
	if log.TxHash != (common.Hash{}) {
		return fmt.Sprintf("%s-%d", log.TxHash.Hex(), log.Index)
	}
	return fmt.Sprintf("tx-%s-%d-%d", log.BlockHash.Hex(), log.BlockNumber, log.Index)
}

// DerivedID returns an identifier for a secondary record emitted while
// handling a single log. The suffix names the record kind, so a log that
// fans out into several rows keeps one stable identifier per row.
func DerivedID(baseID, suffix string) string {
	return baseID + "-" + suffix
}

// IndexedID returns an identifier for the i-th record derived from a single
// log, used when one log fans out into a variable number of rows
// (batch transfers, signal arrays).
func IndexedID(baseID string, i int) string {
	return fmt.Sprintf("%s-%d", baseID, i)
}
