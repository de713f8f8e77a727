package downloader

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/internal/db"
	"github.com/willwe-labs/willwe-indexer/internal/downloader/migrations"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
)

func newTestSyncManager(t *testing.T) *SyncManager {
	t.Helper()

	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "checkpoints.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, migrations.RunMigrationsDB(log, database))

	return NewSyncManager(database, "base", log)
}

func TestSyncManager_InitialState(t *testing.T) {
	sm := newTestSyncManager(t)

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(0), state.LastIndexedBlock)
	require.Equal(t, common.Hash{}, state.LastIndexedBlockHash)
	require.Equal(t, string(ModeBackfill), state.Mode)
}

func TestSyncManager_SaveCheckpoint(t *testing.T) {
	sm := newTestSyncManager(t)

	hash := common.HexToHash("0xdeadbeef")
	require.NoError(t, sm.SaveCheckpoint(12345, hash, ModeLive))

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(12345), state.LastIndexedBlock)
	require.Equal(t, hash, state.LastIndexedBlockHash)
	require.Equal(t, string(ModeLive), state.Mode)
	require.NotZero(t, state.LastIndexedTimestamp)
}

func TestSyncManager_SetModeKeepsCheckpoint(t *testing.T) {
	sm := newTestSyncManager(t)

	hash := common.HexToHash("0x01")
	require.NoError(t, sm.SaveCheckpoint(500, hash, ModeBackfill))
	require.NoError(t, sm.SetMode(ModeLive))

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(500), state.LastIndexedBlock)
	require.Equal(t, hash, state.LastIndexedBlockHash)
	require.Equal(t, string(ModeLive), state.Mode)
}

func TestSyncManager_Reset(t *testing.T) {
	sm := newTestSyncManager(t)

	require.NoError(t, sm.SaveCheckpoint(900, common.HexToHash("0x02"), ModeLive))
	require.NoError(t, sm.Reset(100))

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(100), state.LastIndexedBlock)
	require.Equal(t, common.Hash{}, state.LastIndexedBlockHash)
	require.Equal(t, string(ModeBackfill), state.Mode)
}
