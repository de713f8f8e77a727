package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/willwe-labs/willwe-indexer/internal/db"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
)

//go:embed 001_initial.sql
var mig0001 string

func downloaderMigrations() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_initial.sql",
			SQL: mig0001,
		},
	}
}

// RunMigrations runs all migrations for a per-network downloader database.
func RunMigrations(dbPath string) error {
	return db.RunMigrations(dbPath, downloaderMigrations())
}

// RunMigrationsDB runs all downloader migrations on an open database.
func RunMigrationsDB(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, downloaderMigrations())
}
