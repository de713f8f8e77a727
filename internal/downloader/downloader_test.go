package downloader

import (
	"context"
	"sync"
	"testing"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/internal/logger"
)

type indexedRange struct {
	fromBlock uint64
	toBlock   uint64
	logCount  int
}

// recordingIndexer captures what the download loop hands it.
type recordingIndexer struct {
	mu         sync.Mutex
	startBlock uint64
	ranges     []indexedRange
	reorgs     []uint64
}

func (r *recordingIndexer) StartBlock() uint64 { return r.startBlock }

func (r *recordingIndexer) HandleLogs(_ context.Context, logs []ethtypes.Log, headers []*ethtypes.Header) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges = append(r.ranges, indexedRange{
		fromBlock: headers[0].Number.Uint64(),
		toBlock:   headers[len(headers)-1].Number.Uint64(),
		logCount:  len(logs),
	})
	return nil
}

func (r *recordingIndexer) HandleReorg(firstReorgBlock uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reorgs = append(r.reorgs, firstReorgBlock)
	return nil
}

func (r *recordingIndexer) snapshot() ([]indexedRange, []uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]indexedRange(nil), r.ranges...), append([]uint64(nil), r.reorgs...)
}

func newTestDownloader(t *testing.T, client *fakeLogClient, chunkSize uint64, idx Indexer) (*Downloader, *SyncManager) {
	t.Helper()

	fetcher := newTestFetcher(t, client, chunkSize)
	sm := newTestSyncManager(t)

	dl, err := New("base", fetcher, sm, idx, logger.NewNopLogger())
	require.NoError(t, err)
	return dl, sm
}

func TestNew_Validation(t *testing.T) {
	client := newFakeChain(1, 1)
	fetcher := newTestFetcher(t, client, 10)
	sm := newTestSyncManager(t)
	idx := &recordingIndexer{startBlock: 1}
	log := logger.NewNopLogger()

	_, err := New("base", nil, sm, idx, log)
	require.ErrorContains(t, err, "log fetcher is required")

	_, err = New("base", fetcher, nil, idx, log)
	require.ErrorContains(t, err, "sync manager is required")

	_, err = New("base", fetcher, sm, nil, log)
	require.ErrorContains(t, err, "indexer is required")
}

func TestDownloader_BackfillIndexesAndCheckpoints(t *testing.T) {
	client := newFakeChain(6, 6)
	client.addLog(2)
	client.addLog(5)

	idx := &recordingIndexer{startBlock: 1}
	dl, sm := newTestDownloader(t, client, 3, idx)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- dl.Download(ctx) }()

	require.Eventually(t, func() bool {
		state, err := sm.GetState()
		return err == nil && state.LastIndexedBlock == 6
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	ranges, reorgs := idx.snapshot()
	require.Empty(t, reorgs)
	require.Equal(t, []indexedRange{
		{fromBlock: 1, toBlock: 3, logCount: 1},
		{fromBlock: 4, toBlock: 6, logCount: 1},
	}, ranges)

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(6), state.LastIndexedBlock)
	require.Equal(t, client.headers[6].Hash(), state.LastIndexedBlockHash)
}

func TestDownloader_SkipsEmptyRanges(t *testing.T) {
	client := newFakeChain(3, 3)

	idx := &recordingIndexer{startBlock: 1}
	dl, sm := newTestDownloader(t, client, 10, idx)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- dl.Download(ctx) }()

	require.Eventually(t, func() bool {
		state, err := sm.GetState()
		return err == nil && state.LastIndexedBlock == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// no logs, no indexer calls, but the checkpoint still advances
	ranges, _ := idx.snapshot()
	require.Empty(t, ranges)
}

func TestDownloader_ResumesFromCheckpoint(t *testing.T) {
	client := newFakeChain(6, 6)
	client.addLog(2)
	client.addLog(5)

	idx := &recordingIndexer{startBlock: 1}
	dl, sm := newTestDownloader(t, client, 10, idx)

	// pretend a previous run stopped after block 4
	require.NoError(t, sm.SaveCheckpoint(4, client.headers[4].Hash(), ModeBackfill))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- dl.Download(ctx) }()

	require.Eventually(t, func() bool {
		state, err := sm.GetState()
		return err == nil && state.LastIndexedBlock == 6
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	ranges, _ := idx.snapshot()
	require.Equal(t, []indexedRange{
		{fromBlock: 5, toBlock: 6, logCount: 1},
	}, ranges)
}

func TestDownloader_HandleReorg(t *testing.T) {
	client := newFakeChain(10, 10)

	idx := &recordingIndexer{startBlock: 1}
	dl, sm := newTestDownloader(t, client, 10, idx)

	require.NoError(t, sm.SaveCheckpoint(10, client.headers[10].Hash(), ModeLive))
	dl.fetcher.SetMode(ModeLive)

	require.NoError(t, dl.handleReorg(8))

	_, reorgs := idx.snapshot()
	require.Equal(t, []uint64{8}, reorgs)

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(7), state.LastIndexedBlock)
	require.Equal(t, string(ModeBackfill), state.Mode)
	require.Equal(t, ModeBackfill, dl.fetcher.GetMode())
}
