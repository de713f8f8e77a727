package downloader

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/internal/db"
	"github.com/willwe-labs/willwe-indexer/internal/downloader/migrations"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/reorg"
	itypes "github.com/willwe-labs/willwe-indexer/internal/types"
)

// tooManyResultsError mimics a provider DataError for oversized log queries.
type tooManyResultsError struct {
	data string
}

func (e *tooManyResultsError) Error() string          { return "query limit exceeded" }
func (e *tooManyResultsError) ErrorData() interface{} { return e.data }

// fakeLogClient serves a canned chain of headers and logs. When maxLogRange
// is non-zero, GetLogs refuses wider queries the way capped providers do.
type fakeLogClient struct {
	mu            sync.Mutex
	headers       map[uint64]*ethtypes.Header
	finalized     uint64
	logsByBlock   map[uint64][]ethtypes.Log
	maxLogRange   uint64
	suggestRanges bool
	logCalls      [][2]uint64
}

func (c *fakeLogClient) GetFinalizedBlockHeader(_ context.Context) (*ethtypes.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &ethtypes.Header{Number: new(big.Int).SetUint64(c.finalized)}, nil
}

func (c *fakeLogClient) GetSafeBlockHeader(_ context.Context) (*ethtypes.Header, error) {
	return c.GetFinalizedBlockHeader(context.Background())
}

func (c *fakeLogClient) GetLatestBlockHeader(_ context.Context) (*ethtypes.Header, error) {
	return c.GetFinalizedBlockHeader(context.Background())
}

func (c *fakeLogClient) BatchGetBlockHeaders(_ context.Context, blockNums []uint64) ([]*ethtypes.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	headers := make([]*ethtypes.Header, 0, len(blockNums))
	for _, num := range blockNums {
		header, ok := c.headers[num]
		if !ok {
			return nil, fmt.Errorf("no header for block %d", num)
		}
		headers = append(headers, header)
	}
	return headers, nil
}

func (c *fakeLogClient) GetLogs(_ context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := query.FromBlock.Uint64()
	to := query.ToBlock.Uint64()
	c.logCalls = append(c.logCalls, [2]uint64{from, to})

	if c.maxLogRange > 0 && to-from+1 > c.maxLogRange {
		data := "Query returned more than 10000 results."
		if c.suggestRanges {
			data = fmt.Sprintf("Query returned more than 10000 results. Try with this block range [0x%x, 0x%x].",
				from, from+c.maxLogRange-1)
		}
		return nil, &tooManyResultsError{data: data}
	}

	var logs []ethtypes.Log
	for num := from; num <= to; num++ {
		logs = append(logs, c.logsByBlock[num]...)
	}
	return logs, nil
}

// newFakeChain builds a linked chain 1..length and a client serving it.
func newFakeChain(length, finalized uint64) *fakeLogClient {
	headers := make(map[uint64]*ethtypes.Header, length)
	parent := common.HexToHash("0x00")
	for num := uint64(1); num <= length; num++ {
		header := &ethtypes.Header{
			Number:     new(big.Int).SetUint64(num),
			ParentHash: parent,
			Difficulty: big.NewInt(1),
			GasLimit:   8000000,
			Time:       1000000 + num,
		}
		headers[num] = header
		parent = header.Hash()
	}
	return &fakeLogClient{
		headers:     headers,
		finalized:   finalized,
		logsByBlock: make(map[uint64][]ethtypes.Log),
	}
}

func (c *fakeLogClient) addLog(blockNum uint64) {
	c.logsByBlock[blockNum] = append(c.logsByBlock[blockNum], ethtypes.Log{
		BlockNumber: blockNum,
		BlockHash:   c.headers[blockNum].Hash(),
		Address:     common.HexToAddress("0x1B134AAa0e43a66d255Db80ad6e82885Dbd54952"),
	})
}

func newTestFetcher(t *testing.T, client *fakeLogClient, chunkSize uint64) *LogFetcher {
	t.Helper()

	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "checkpoints.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, migrations.RunMigrationsDB(log, database))

	detector := reorg.NewDetector(database, client, "base", itypes.FinalityFinalized, 0, log)

	return NewLogFetcher(LogFetcherConfig{
		ChunkSize: chunkSize,
		Finality:  itypes.FinalityFinalized,
	}, client, detector, log)
}

func TestLogFetcher_FetchRange(t *testing.T) {
	client := newFakeChain(10, 10)
	client.addLog(3)
	client.addLog(7)
	fetcher := newTestFetcher(t, client, 100)

	result, err := fetcher.FetchRange(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.FromBlock)
	require.Equal(t, uint64(10), result.ToBlock)
	require.Len(t, result.Logs, 2)
	require.Len(t, result.Headers, 10)
	require.Equal(t, uint64(3), result.Logs[0].BlockNumber)
	require.Equal(t, uint64(7), result.Logs[1].BlockNumber)
}

func TestLogFetcher_FetchNext_BackfillChunking(t *testing.T) {
	client := newFakeChain(100, 100)
	fetcher := newTestFetcher(t, client, 10)

	result, err := fetcher.FetchNext(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.FromBlock)
	require.Equal(t, uint64(10), result.ToBlock)
	require.Equal(t, ModeBackfill, fetcher.GetMode())

	// backfill clamps the last chunk at the finalized head
	result, err = fetcher.FetchNext(context.Background(), 95)
	require.NoError(t, err)
	require.Equal(t, uint64(96), result.FromBlock)
	require.Equal(t, uint64(100), result.ToBlock)
}

func TestLogFetcher_FetchNext_SwitchesToLive(t *testing.T) {
	client := newFakeChain(10, 10)
	fetcher := newTestFetcher(t, client, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// caught up with the finalized head: backfill flips to live, and the
	// live tail parks on the cancelled context
	_, err := fetcher.FetchNext(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, ModeLive, fetcher.GetMode())
}

func TestLogFetcher_FetchNext_LiveFetchesNewBlocks(t *testing.T) {
	client := newFakeChain(12, 12)
	client.addLog(11)
	fetcher := newTestFetcher(t, client, 10)
	fetcher.SetMode(ModeLive)

	result, err := fetcher.FetchNext(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, uint64(11), result.FromBlock)
	require.Equal(t, uint64(12), result.ToBlock)
	require.Len(t, result.Logs, 1)
}

func TestLogFetcher_TooManyResults_SuggestedRange(t *testing.T) {
	client := newFakeChain(10, 10)
	client.maxLogRange = 4
	client.suggestRanges = true
	for num := uint64(1); num <= 10; num++ {
		client.addLog(num)
	}
	fetcher := newTestFetcher(t, client, 100)

	result, err := fetcher.FetchRange(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Logs, 10)

	// the window follows the provider's suggestions and stitches the pieces
	require.Equal(t, [][2]uint64{
		{1, 10}, {1, 4},
		{5, 10}, {5, 8},
		{9, 10},
	}, client.logCalls)
}

func TestLogFetcher_TooManyResults_Halving(t *testing.T) {
	client := newFakeChain(10, 10)
	client.maxLogRange = 4
	for num := uint64(1); num <= 10; num++ {
		client.addLog(num)
	}
	fetcher := newTestFetcher(t, client, 100)

	result, err := fetcher.FetchRange(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Logs, 10)

	// no usable suggestion, so the window halves until it fits
	require.Equal(t, [][2]uint64{
		{1, 10}, {1, 5}, {1, 3},
		{4, 10}, {4, 7},
		{8, 10},
	}, client.logCalls)
}
