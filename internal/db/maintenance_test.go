package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/internal/common"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/pkg/config"
)

func TestNewMaintenance_NilConfigIsNoOp(t *testing.T) {
	database, path := newTestDB(t)

	m := NewMaintenance(path, database, nil, logger.NewNopLogger())
	require.IsType(t, &NoOpMaintenance{}, m)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.RunMaintenance(ctx))
	require.NoError(t, m.Stop())
}

func TestMaintenance_RunMaintenance(t *testing.T) {
	database, path := newTestDB(t)

	_, err := database.Exec("CREATE TABLE filler (id INTEGER PRIMARY KEY, payload TEXT)")
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		_, err := database.Exec("INSERT INTO filler (payload) VALUES (?)", "payload")
		require.NoError(t, err)
	}
	_, err = database.Exec("DELETE FROM filler")
	require.NoError(t, err)

	cfg := &config.MaintenanceConfig{
		Enabled:           true,
		CheckInterval:     common.NewDuration(time.Hour),
		WALCheckpointMode: "TRUNCATE",
	}
	m := NewMaintenance(path, database, cfg, logger.NewNopLogger())

	require.NoError(t, m.RunMaintenance(context.Background()))

	// the connection stays usable after checkpoint and vacuum
	var count int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM filler").Scan(&count))
	require.Zero(t, count)
}

func TestMaintenance_RunMaintenanceCancelledContext(t *testing.T) {
	database, path := newTestDB(t)

	cfg := &config.MaintenanceConfig{
		Enabled:           true,
		CheckInterval:     common.NewDuration(time.Hour),
		WALCheckpointMode: "PASSIVE",
	}
	m := NewMaintenance(path, database, cfg, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.RunMaintenance(ctx), context.Canceled)
}

func TestMaintenance_StartAndStop(t *testing.T) {
	database, path := newTestDB(t)

	cfg := &config.MaintenanceConfig{
		Enabled:           true,
		CheckInterval:     common.NewDuration(time.Hour),
		WALCheckpointMode: "PASSIVE",
	}
	m := NewMaintenance(path, database, cfg, logger.NewNopLogger())

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop())
}

func TestMaintenance_StartDisabled(t *testing.T) {
	database, path := newTestDB(t)

	cfg := &config.MaintenanceConfig{
		Enabled:           false,
		CheckInterval:     common.NewDuration(time.Hour),
		WALCheckpointMode: "PASSIVE",
	}
	m := NewMaintenance(path, database, cfg, logger.NewNopLogger())

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop())
}
