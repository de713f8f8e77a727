package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/pkg/config"
)

func newTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	database, err := NewSQLiteDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return database, path
}

func TestNewSQLiteDB(t *testing.T) {
	database, _ := newTestDB(t)

	var journalMode string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	require.Equal(t, 1, foreignKeys)
}

func TestNewSQLiteDBFromConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Path:               filepath.Join(t.TempDir(), "cfg.sqlite"),
		JournalMode:        "WAL",
		Synchronous:        "NORMAL",
		BusyTimeout:        1000,
		CacheSize:          5000,
		MaxOpenConnections: 4,
		MaxIdleConnections: 2,
	}

	database, err := NewSQLiteDBFromConfig(cfg)
	require.NoError(t, err)
	defer database.Close()

	var synchronous int
	require.NoError(t, database.QueryRow("PRAGMA synchronous").Scan(&synchronous))
	require.Equal(t, 1, synchronous) // NORMAL

	require.Equal(t, 4, database.Stats().MaxOpenConnections)
}

type meddlerRow struct {
	ID      int            `meddler:"id,pk"`
	Hash    common.Hash    `meddler:"hash,hash"`
	HashPtr *common.Hash   `meddler:"hash_ptr,hash"`
	Address common.Address `meddler:"address,address"`
	Members []string       `meddler:"members,jsonstrings"`
}

func TestCustomMeddlers_RoundTrip(t *testing.T) {
	database, _ := newTestDB(t)

	_, err := database.Exec(`CREATE TABLE meddler_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL,
		hash_ptr TEXT,
		address TEXT NOT NULL,
		members TEXT NOT NULL
	)`)
	require.NoError(t, err)

	hash := common.HexToHash("0xabcdef")
	ptr := common.HexToHash("0x123456")
	row := &meddlerRow{
		Hash:    hash,
		HashPtr: &ptr,
		Address: common.HexToAddress("0x1B134AAa0e43a66d255Db80ad6e82885Dbd54952"),
		Members: []string{"0xaaa", "0xbbb"},
	}
	require.NoError(t, meddler.Insert(database, "meddler_rows", row))

	loaded := &meddlerRow{}
	require.NoError(t, meddler.QueryRow(database, loaded,
		"SELECT * FROM meddler_rows WHERE id = ?", row.ID))

	require.Equal(t, hash, loaded.Hash)
	require.NotNil(t, loaded.HashPtr)
	require.Equal(t, ptr, *loaded.HashPtr)
	require.Equal(t, row.Address, loaded.Address)
	require.Equal(t, []string{"0xaaa", "0xbbb"}, loaded.Members)
}

func TestCustomMeddlers_NullHandling(t *testing.T) {
	database, _ := newTestDB(t)

	_, err := database.Exec(`CREATE TABLE meddler_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL DEFAULT '',
		hash_ptr TEXT,
		address TEXT NOT NULL DEFAULT '',
		members TEXT
	)`)
	require.NoError(t, err)

	row := &meddlerRow{
		Hash:    common.Hash{},
		HashPtr: nil,
		Members: nil,
	}
	require.NoError(t, meddler.Insert(database, "meddler_rows", row))

	loaded := &meddlerRow{}
	require.NoError(t, meddler.QueryRow(database, loaded,
		"SELECT * FROM meddler_rows WHERE id = ?", row.ID))

	require.Nil(t, loaded.HashPtr)
	require.Equal(t, common.Hash{}, loaded.Hash)
	// nil slices come back as empty, never nil
	require.NotNil(t, loaded.Members)
	require.Empty(t, loaded.Members)
}

func TestDBTotalSize(t *testing.T) {
	database, path := newTestDB(t)

	_, err := database.Exec("CREATE TABLE filler (id INTEGER PRIMARY KEY, payload TEXT)")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		_, err := database.Exec("INSERT INTO filler (payload) VALUES (?)", "some payload data")
		require.NoError(t, err)
	}

	size, err := DBTotalSize(path)
	require.NoError(t, err)
	require.Positive(t, size)
}
