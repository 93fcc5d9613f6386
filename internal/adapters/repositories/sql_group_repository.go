package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/platform/obs"
)

// SQL-backed implementation of the GroupRepository port.
type SQLGroupRepository struct{ DB *sql.DB }

func NewSQLGroupRepository(db *sql.DB) *SQLGroupRepository {
	return &SQLGroupRepository{DB: db}
}

// Return all groups in roster order with their pickup addresses.
func (s *SQLGroupRepository) ListGroups(ctx context.Context) (_ []domain.Group, err error) {
	defer obs.Time(ctx, "groups.ListGroups")(&err)

	if s.DB == nil {
		return nil, errors.New("sql group repository: DB is nil")
	}

	query := `
	SELECT
		id,
		column_name,
		capacity,
		driver,
		passengers,
		starting_address
	FROM carpool_groups
	ORDER BY position;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list groups: query carpool_groups table: %w", err)
	}
	defer rows.Close()

	groups := make([]domain.Group, 0, 16)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			g          domain.Group
			capacity   sql.NullInt64
			passengers string
		)
		if err := rows.Scan(&g.ID, &g.Column, &capacity, &g.Driver, &passengers, &g.StartingAddress); err != nil {
			return nil, fmt.Errorf("list groups: scan row: %w", err)
		}
		if capacity.Valid {
			c := int(capacity.Int64)
			g.Capacity = &c
		}
		if err := json.Unmarshal([]byte(passengers), &g.Passengers); err != nil {
			return nil, fmt.Errorf("list groups: decode passengers of %q: %w", g.Column, err)
		}
		g.PickupAddresses = []string{}

		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: row iteration: %w", err)
	}

	if err := s.attachStops(ctx, groups, index); err != nil {
		return nil, err
	}

	return groups, nil
}

func (s *SQLGroupRepository) attachStops(ctx context.Context, groups []domain.Group, index map[int64]int) error {
	query := `
	SELECT group_id, address
	FROM group_stops
	ORDER BY group_id, position;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("list groups: query group_stops table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			groupID int64
			addr    string
		)
		if err := rows.Scan(&groupID, &addr); err != nil {
			return fmt.Errorf("list groups: scan stop: %w", err)
		}
		if i, ok := index[groupID]; ok {
			groups[i].PickupAddresses = append(groups[i].PickupAddresses, addr)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("list groups: stop iteration: %w", err)
	}
	return nil
}
