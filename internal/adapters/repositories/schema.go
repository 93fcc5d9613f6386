package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the roster and run history tables for the given driver.
func InitSchema(db *sql.DB, driver string) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}
	if err := checkDriver(driver); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createGroupsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS carpool_groups (
		id %s,
		position INTEGER NOT NULL,
		column_name TEXT NOT NULL UNIQUE,
		capacity INTEGER,
		driver TEXT NOT NULL,
		passengers TEXT NOT NULL DEFAULT '[]',
		starting_address TEXT NOT NULL DEFAULT ''
	);
	`, autoIncrementPK(driver))

	createGroupStopsQuery := `
	CREATE TABLE IF NOT EXISTS group_stops (
		group_id BIGINT NOT NULL REFERENCES carpool_groups(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		address TEXT NOT NULL,
		PRIMARY KEY (group_id, position)
	);
	`

	createRouteRunsQuery := `
	CREATE TABLE IF NOT EXISTS route_runs (
		id TEXT PRIMARY KEY,
		destination TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		group_count INTEGER NOT NULL,
		failed_legs INTEGER NOT NULL
	);
	`

	createRunGroupsQuery := `
	CREATE TABLE IF NOT EXISTS run_groups (
		run_id TEXT NOT NULL REFERENCES route_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		capacity INTEGER,
		driver TEXT NOT NULL,
		passengers TEXT NOT NULL,
		starting_address TEXT NOT NULL,
		pickup_addresses TEXT NOT NULL,
		maps_url TEXT NOT NULL DEFAULT '',
		maps_return_url TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	);
	`

	createRouteLegsQuery := `
	CREATE TABLE IF NOT EXISTS route_legs (
		run_id TEXT NOT NULL REFERENCES route_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		leg TEXT NOT NULL,
		stop_order TEXT,
		total_seconds DOUBLE PRECISION,
		pretty_time TEXT,
		error_code TEXT,
		error_status TEXT,
		error_message TEXT,
		PRIMARY KEY (run_id, position, leg)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_route_runs_started_at
	ON route_runs(started_at);
	`

	statements := []string{
		createGroupsQuery,
		createGroupStopsQuery,
		createRouteRunsQuery,
		createRunGroupsQuery,
		createRouteLegsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
