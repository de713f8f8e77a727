package types

import (
	"fmt"
	"strings"
)

// BlockFinality selects which chain head the download loop trusts.
type BlockFinality string

const (
	// FinalityFinalized uses the finalized block tag
	FinalityFinalized BlockFinality = "finalized"

	// FinalitySafe uses the safe block tag
	FinalitySafe BlockFinality = "safe"

	// FinalityLatest uses the latest block, optionally lagged by
	// finalized_lag blocks
	FinalityLatest BlockFinality = "latest"
)

var knownFinalities = []BlockFinality{FinalityFinalized, FinalitySafe, FinalityLatest}

func (f BlockFinality) String() string {
	return string(f)
}

func (f BlockFinality) IsValid() bool {
	for _, k := range knownFinalities {
		if f == k {
			return true
		}
	}
	return false
}

// ParseBlockFinality parses a config string into a BlockFinality.
func ParseBlockFinality(s string) (BlockFinality, error) {
	f := BlockFinality(s)
	if !f.IsValid() {
		names := make([]string, len(knownFinalities))
		for i, k := range knownFinalities {
			names[i] = string(k)
		}
		return "", fmt.Errorf("invalid block finality %q, want one of: %s", s, strings.Join(names, ", "))
	}
	return f, nil
}
