package db

import (
	"database/sql"
	"fmt"
	"time"

	"carpool-route-service/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects to the configured database and returns the handle with the
// driver name ("sqlite" or "postgres") repositories use for placeholders.
func Open(cfg *config.DatabaseConfig) (*sql.DB, string, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := openSQLite(cfg.SQLite.Path)
		return db, "sqlite", err
	case "postgres":
		db, err := openPostgres(cfg.Postgres.URL)
		return db, "postgres", err
	default:
		return nil, "", fmt.Errorf("openDB: unsupported database driver: %s", cfg.Driver)
	}
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", path, err)
	}

	return db, nil
}

func openPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("openDB: verify postgres connection: %w", err)
	}

	return db, nil
}
