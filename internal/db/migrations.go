package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/willwe-labs/willwe-indexer/internal/logger"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migration is one embedded SQL migration. The SQL carries a Down section
// followed by an Up section, separated by the sql-migrate markers.
type Migration struct {
	ID  string
	SQL string
}

// RunMigrations opens the database at dbPath and applies all pending
// migrations.
func RunMigrations(dbPath string, migrations []Migration) error {
	database, err := NewSQLiteDB(dbPath)
	if err != nil {
		return fmt.Errorf("error creating DB %w", err)
	}
	defer database.Close()

	return RunMigrationsDB(logger.GetDefaultLogger(), database, migrations)
}

// RunMigrationsDB applies all pending migrations on an already open database.
func RunMigrationsDB(log *logger.Logger, database *sql.DB, migrations []Migration) error {
	source := &migrate.MemoryMigrationSource{}
	for _, m := range migrations {
		up, down, err := splitMigration(m)
		if err != nil {
			return err
		}
		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{up},
			Down: []string{down},
		})
	}

	applied, err := migrate.Exec(database, "sqlite3", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("error executing %d migrations: %w", len(source.Migrations), err)
	}

	log.Infof("successfully ran %d of %d migrations", applied, len(source.Migrations))
	return nil
}

func splitMigration(m Migration) (up, down string, err error) {
	parts := strings.Split(m.SQL, upMarker)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("migration %s missing %q separator", m.ID, upMarker)
	}

	down = parts[0]
	if idx := strings.Index(down, downMarker); idx != -1 {
		down = down[idx+len(downMarker):]
	}

	return strings.TrimSpace(parts[1]), strings.TrimSpace(down), nil
}
