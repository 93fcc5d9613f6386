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

const defaultRunLimit = 20

// SQLRunRepository stores planning runs as write-once audit records.
type SQLRunRepository struct {
	DB     *sql.DB
	driver string
}

func NewSQLRunRepository(db *sql.DB, driver string) *SQLRunRepository {
	return &SQLRunRepository{DB: db, driver: driver}
}

func (s *SQLRunRepository) q(query string) string { return rebind(s.driver, query) }

// SaveRun writes the run, a snapshot of every group and one row per leg.
func (s *SQLRunRepository) SaveRun(ctx context.Context, run *domain.Run) (err error) {
	defer obs.Time(ctx, "runs.SaveRun")(&err)

	if s.DB == nil {
		return errors.New("sql run repository: DB is nil")
	}
	if run == nil || run.ID == "" {
		return errors.New("save run: run id is required")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.q(`
	INSERT INTO route_runs (id, destination, started_at, finished_at, group_count, failed_legs)
	VALUES (?, ?, ?, ?, ?, ?);
	`), run.ID, run.Destination, formatTime(run.StartedAt), formatTime(run.FinishedAt), len(run.Groups), run.FailedLegs())
	if err != nil {
		return fmt.Errorf("save run: insert run %s: %w", run.ID, err)
	}

	groupStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO run_groups (
		run_id,
		position,
		column_name,
		capacity,
		driver,
		passengers,
		starting_address,
		pickup_addresses,
		maps_url,
		maps_return_url
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save run: prepare group insert: %w", err)
	}
	defer groupStmt.Close()

	legStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO route_legs (
		run_id,
		position,
		leg,
		stop_order,
		total_seconds,
		pretty_time,
		error_code,
		error_status,
		error_message
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save run: prepare leg insert: %w", err)
	}
	defer legStmt.Close()

	for pos, g := range run.Groups {
		passengers, err := json.Marshal(nonNil(g.Passengers))
		if err != nil {
			return fmt.Errorf("save run: encode passengers of %q: %w", g.Column, err)
		}
		stops, err := json.Marshal(nonNil(g.PickupAddresses))
		if err != nil {
			return fmt.Errorf("save run: encode stops of %q: %w", g.Column, err)
		}

		_, err = groupStmt.ExecContext(ctx,
			run.ID, pos, g.Column, nullableInt(g.Capacity), g.Driver,
			string(passengers), g.StartingAddress, string(stops), g.MapsURL, g.MapsReturnURL,
		)
		if err != nil {
			return fmt.Errorf("save run: insert group %q: %w", g.Column, err)
		}

		legs := []struct {
			leg   domain.Leg
			route *domain.Route
			err   *domain.RouteError
		}{
			{domain.LegForward, g.BestRoute, g.BestRouteError},
			{domain.LegReturn, g.BestReturnRoute, g.BestReturnRouteError},
		}
		for _, l := range legs {
			if l.route == nil && l.err == nil {
				continue
			}
			args, err := legArgs(l.route, l.err)
			if err != nil {
				return fmt.Errorf("save run: encode %s leg of %q: %w", l.leg, g.Column, err)
			}
			args = append([]any{run.ID, pos, string(l.leg)}, args...)
			if _, err := legStmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("save run: insert %s leg of %q: %w", l.leg, g.Column, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit tx: %w", err)
	}
	return nil
}

func legArgs(route *domain.Route, rerr *domain.RouteError) ([]any, error) {
	if route != nil {
		order, err := json.Marshal(route.Order)
		if err != nil {
			return nil, err
		}
		return []any{string(order), route.TotalSeconds, route.PrettyTime, nil, nil, nil}, nil
	}
	return []any{nil, nil, nil, rerr.Code, rerr.Status, rerr.Message}, nil
}

// GetRun returns nil, nil when no run has the given id.
func (s *SQLRunRepository) GetRun(ctx context.Context, id string) (_ *domain.Run, err error) {
	defer obs.Time(ctx, "runs.GetRun")(&err)

	if s.DB == nil {
		return nil, errors.New("sql run repository: DB is nil")
	}

	var (
		run                domain.Run
		started, finished  string
		groupCount, failed int
	)
	err = s.DB.QueryRowContext(ctx, s.q(`
	SELECT id, destination, started_at, finished_at, group_count, failed_legs
	FROM route_runs
	WHERE id = ?;
	`), id).Scan(&run.ID, &run.Destination, &started, &finished, &groupCount, &failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)

	run.Groups, err = s.loadGroups(ctx, id, groupCount)
	if err != nil {
		return nil, err
	}
	if err := s.loadLegs(ctx, id, run.Groups); err != nil {
		return nil, err
	}

	return &run, nil
}

func (s *SQLRunRepository) loadGroups(ctx context.Context, runID string, sizeHint int) ([]domain.Group, error) {
	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT
		column_name,
		capacity,
		driver,
		passengers,
		starting_address,
		pickup_addresses,
		maps_url,
		maps_return_url
	FROM run_groups
	WHERE run_id = ?
	ORDER BY position;
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: query run_groups table: %w", runID, err)
	}
	defer rows.Close()

	groups := make([]domain.Group, 0, sizeHint)
	for rows.Next() {
		var (
			g                 domain.Group
			capacity          sql.NullInt64
			passengers, stops string
		)
		err := rows.Scan(&g.Column, &capacity, &g.Driver, &passengers, &g.StartingAddress,
			&stops, &g.MapsURL, &g.MapsReturnURL)
		if err != nil {
			return nil, fmt.Errorf("get run %s: scan group: %w", runID, err)
		}
		if capacity.Valid {
			c := int(capacity.Int64)
			g.Capacity = &c
		}
		if err := json.Unmarshal([]byte(passengers), &g.Passengers); err != nil {
			return nil, fmt.Errorf("get run %s: decode passengers: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(stops), &g.PickupAddresses); err != nil {
			return nil, fmt.Errorf("get run %s: decode stops: %w", runID, err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run %s: group iteration: %w", runID, err)
	}
	return groups, nil
}

func (s *SQLRunRepository) loadLegs(ctx context.Context, runID string, groups []domain.Group) error {
	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT
		position,
		leg,
		stop_order,
		total_seconds,
		pretty_time,
		error_code,
		error_status,
		error_message
	FROM route_legs
	WHERE run_id = ?;
	`), runID)
	if err != nil {
		return fmt.Errorf("get run %s: query route_legs table: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos                   int
			leg                   string
			order, pretty         sql.NullString
			total                 sql.NullFloat64
			code, status, message sql.NullString
		)
		if err := rows.Scan(&pos, &leg, &order, &total, &pretty, &code, &status, &message); err != nil {
			return fmt.Errorf("get run %s: scan leg: %w", runID, err)
		}
		if pos < 0 || pos >= len(groups) {
			continue
		}

		var (
			route *domain.Route
			rerr  *domain.RouteError
		)
		if code.Valid {
			rerr = domain.RestoreRouteError(code.String, status.String, message.String)
		} else {
			route = &domain.Route{TotalSeconds: total.Float64, PrettyTime: pretty.String}
			if err := json.Unmarshal([]byte(order.String), &route.Order); err != nil {
				return fmt.Errorf("get run %s: decode stop order: %w", runID, err)
			}
		}

		g := &groups[pos]
		switch domain.Leg(leg) {
		case domain.LegForward:
			g.BestRoute, g.BestRouteError = route, rerr
		case domain.LegReturn:
			g.BestReturnRoute, g.BestReturnRouteError = route, rerr
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("get run %s: leg iteration: %w", runID, err)
	}
	return nil
}

// ListRuns returns run headers, most recent first. Groups are not loaded.
func (s *SQLRunRepository) ListRuns(ctx context.Context, limit int) (_ []domain.Run, err error) {
	defer obs.Time(ctx, "runs.ListRuns")(&err)

	if s.DB == nil {
		return nil, errors.New("sql run repository: DB is nil")
	}
	if limit <= 0 {
		limit = defaultRunLimit
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT id, destination, started_at, finished_at
	FROM route_runs
	ORDER BY started_at DESC, id
	LIMIT ?;
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: query route_runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.Run, 0, limit)
	for rows.Next() {
		var (
			r                 domain.Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Destination, &started, &finished); err != nil {
			return nil, fmt.Errorf("list runs: scan row: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}
	return runs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
