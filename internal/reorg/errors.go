package reorg

import "fmt"

// ReorgDetectedError reports that the canonical chain diverged from the
// recorded history. FirstReorgBlock is the lowest block whose stored hash no
// longer matches the chain; everything from that block on must be rolled
// back and re-indexed.
type ReorgDetectedError struct {
	FirstReorgBlock uint64
	Details         string
}

func (e *ReorgDetectedError) Error() string {
	return fmt.Sprintf("reorg detected at block %d: %s", e.FirstReorgBlock, e.Details)
}

// NewReorgError builds a ReorgDetectedError for the given fork point.
func NewReorgError(firstReorgBlock uint64, details string) error {
	return &ReorgDetectedError{FirstReorgBlock: firstReorgBlock, Details: details}
}
