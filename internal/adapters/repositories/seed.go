package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// GroupSeed is one roster entry of a seed file.
type GroupSeed struct {
	Column          string   `json:"column"`
	Capacity        *int     `json:"capacity"`
	Driver          string   `json:"driver"`
	Passengers      []string `json:"passengers"`
	StartingAddress string   `json:"starting_address"`
	PickupAddresses []string `json:"pickup_addresses"`
}

// SeedFromJSON replaces the stored roster with the groups in a JSON file.
// Blank pickup addresses are skipped; a blank starting address is kept as
// absent.
func SeedFromJSON(db *sql.DB, driver, jsonPath string) error {
	if db == nil {
		return errors.New("seed groups: DB is nil")
	}

	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed groups: read %q: %w", jsonPath, err)
	}

	var data []GroupSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed groups: parse json: %w", err)
	}

	rows := make([]GroupSeed, 0, len(data))
	for i, item := range data {
		column := strings.TrimSpace(item.Column)
		if column == "" {
			return fmt.Errorf("seed groups: item at index %d: column cannot be empty", i+1)
		}

		driverName := strings.TrimSpace(item.Driver)
		if driverName == "" {
			return fmt.Errorf("seed groups: item %q: driver cannot be empty", column)
		}

		if item.Capacity != nil && *item.Capacity < 0 {
			return fmt.Errorf("seed groups: item %q: capacity cannot be negative", column)
		}

		rows = append(rows, GroupSeed{
			Column:          column,
			Capacity:        item.Capacity,
			Driver:          driverName,
			Passengers:      cleanList(item.Passengers),
			StartingAddress: strings.TrimSpace(item.StartingAddress),
			PickupAddresses: cleanList(item.PickupAddresses),
		})
	}

	return replaceRoster(db, driver, rows)
}

func replaceRoster(db *sql.DB, driver string, rows []GroupSeed) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed groups: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM group_stops;`, `DELETE FROM carpool_groups;`} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("seed groups: clear roster: %w", err)
		}
	}

	insertGroup := rebind(driver, `
	INSERT INTO carpool_groups (
		position,
		column_name,
		capacity,
		driver,
		passengers,
		starting_address
	)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING id;
	`)

	stopStmt, err := tx.Prepare(rebind(driver, `
	INSERT INTO group_stops (group_id, position, address)
	VALUES (?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("seed groups: prepare stop insert: %w", err)
	}
	defer stopStmt.Close()

	for pos, g := range rows {
		passengers, err := json.Marshal(g.Passengers)
		if err != nil {
			return fmt.Errorf("seed groups: encode passengers of %q: %w", g.Column, err)
		}

		var id int64
		err = tx.QueryRow(insertGroup,
			pos, g.Column, nullableInt(g.Capacity), g.Driver, string(passengers), g.StartingAddress,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed groups: insert group %q: %w", g.Column, err)
		}

		for i, addr := range g.PickupAddresses {
			if _, err := stopStmt.Exec(id, i, addr); err != nil {
				return fmt.Errorf("seed groups: insert stop %d of %q: %w", i, g.Column, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed groups: commit tx: %w", err)
	}

	return nil
}

// cleanList trims entries and drops blank ones, keeping order.
func cleanList(in []string) []string {
	out := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	if out == nil {
		return []string{}
	}
	return out
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
