package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/willwe-labs/willwe-indexer/internal/common"
)

var (
	tooManyResultsRe = regexp.MustCompile(`Query returned more than \d+ results`)
	blockRangeHintRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// IsTooManyResultsError reports whether err is a provider "too many results"
// response. Providers attach the message as structured error data, so the
// check goes through the rpc.DataError interface rather than Error().
// The raw data string is returned for range-hint parsing.
func IsTooManyResultsError(err error) (bool, string) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return false, ""
	}

	data := fmt.Sprintf("%v", dataErr.ErrorData())
	return tooManyResultsRe.MatchString(data), data
}

// ParseSuggestedBlockRange extracts the block range hint some providers
// include, e.g. "Try with this block range [0x7dfd25, 0x7e0fcc].".
func ParseSuggestedBlockRange(errData string) (fromBlock, toBlock uint64, ok bool) {
	matches := blockRangeHintRe.FindStringSubmatch(errData)
	if len(matches) != 3 {
		return 0, 0, false
	}

	from, err := common.ParseUint64orHex(&matches[1])
	if err != nil {
		return 0, 0, false
	}
	to, err := common.ParseUint64orHex(&matches[2])
	if err != nil {
		return 0, 0, false
	}
	return from, to, true
}
