package migrate

import (
	"database/sql"
	"errors"
	"io/fs"

	gomigrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	embedded "github.com/goserg/memberportal"
)

func UpSqlite(db *sql.DB) error {
	databaseDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	return up(embedded.SqliteMigrations, "migrations/sqlite", databaseDriver)
}

func UpPostgres(db *sql.DB) error {
	databaseDriver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return err
	}
	return up(embedded.PostgresMigrations, "migrations/postgres", databaseDriver)
}

func up(fsys fs.FS, path string, databaseDriver database.Driver) error {
	sourceDriver, err := iofs.New(fsys, path)
	if err != nil {
		return err
	}
	m, err := gomigrate.NewWithInstance("iofs",
		sourceDriver,
		"auth", databaseDriver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil && !errors.Is(err, gomigrate.ErrNoChange) {
		return err
	}
	return nil
}
