package database

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // Pure Go sqlite driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB provides a centralized database connection
type DB struct {
	SQL    *sqlx.DB
	driver string
}

// NewDB runs migrations for the given driver and opens the application connection.
func NewDB(driver, dsn string) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Schema must be current before the app opens its own pool.
	if err := RunMigrations(driver, dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer; serialize through one connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{SQL: db, driver: driver}, nil
}

// Driver returns the driver name the connection was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.SQL.Close()
}

// RunMigrations applies the embedded migrations for driver using golang-migrate.
func RunMigrations(driver, dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(driver, dsn))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// migrationURL turns an application DSN into the URL form golang-migrate expects.
func migrationURL(driver, dsn string) string {
	if driver == DriverSQLite {
		return fmt.Sprintf("sqlite://%s", dsn)
	}
	return dsn
}

// Diagnostics describes the connected database session.
type Diagnostics struct {
	Driver   string
	Version  string
	Database string
}

// Diagnostics queries session metadata from the server.
func (d *DB) Diagnostics(ctx context.Context) (Diagnostics, error) {
	diag := Diagnostics{Driver: d.driver}

	var versionQuery, databaseQuery string
	switch d.driver {
	case DriverPostgres:
		versionQuery = "SELECT version()"
		databaseQuery = "SELECT current_database()"
	default:
		versionQuery = "SELECT sqlite_version()"
		databaseQuery = "SELECT file FROM pragma_database_list WHERE name = 'main'"
	}

	if err := d.SQL.GetContext(ctx, &diag.Version, versionQuery); err != nil {
		return diag, fmt.Errorf("failed to query server version: %w", err)
	}
	if err := d.SQL.GetContext(ctx, &diag.Database, databaseQuery); err != nil {
		return diag, fmt.Errorf("failed to query current database: %w", err)
	}
	return diag, nil
}
