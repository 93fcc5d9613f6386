package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/platform/obs"
	"carpool-route-service/internal/ports"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RouteOptimizer picks the stop order for one leg.
type RouteOptimizer interface {
	Optimize(ctx context.Context, start string, stops []string, end string) (*domain.Route, error)
}

// StopSearch returns the matrix indices of the cheapest path from index 0 to
// index Size()-1 visiting every index in between, and its total cost.
// A search gives up with ctx's error once ctx is done.
type StopSearch func(ctx context.Context, m *domain.DurationMatrix) ([]int, float64, error)

// DefaultExhaustiveStops is the largest stop count NewOptimizer searches
// exhaustively; larger legs are ordered by NearestNeighborSearch.
const DefaultExhaustiveStops = 10

// Optimizer finds the fastest start -> stops -> end ordering for a single leg
// using one live duration matrix from the oracle.
type Optimizer struct {
	oracle   ports.TravelTimeOracle
	search   StopSearch
	maxStops int
	fallback StopSearch
}

func NewOptimizer(oracle ports.TravelTimeOracle) *Optimizer {
	return NewOptimizerWithSearch(oracle, ExhaustiveSearch).
		WithStopLimit(DefaultExhaustiveStops, NearestNeighborSearch)
}

// NewOptimizerWithSearch swaps the ordering strategy (e.g. a DP or heuristic
// solver for larger groups) without touching callers. No stop limit applies.
func NewOptimizerWithSearch(oracle ports.TravelTimeOracle, search StopSearch) *Optimizer {
	return &Optimizer{oracle: oracle, search: search}
}

// WithStopLimit orders legs with more than maxStops stops using fallback
// instead of the configured search. maxStops <= 0 removes the limit.
func (o *Optimizer) WithStopLimit(maxStops int, fallback StopSearch) *Optimizer {
	o.maxStops = maxStops
	o.fallback = fallback
	return o
}

// Optimize builds the location list [start] + stops + [end] exactly as given
// (no dedup, no reordering), fetches its matrix once and searches it.
// Oracle failures are returned unchanged.
func (o *Optimizer) Optimize(
	ctx context.Context,
	start string,
	stops []string,
	end string,
) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)

	if strings.TrimSpace(start) == "" {
		return nil, domain.NewRouteError(domain.ErrMissingStart, "", nil)
	}

	locations := make([]string, 0, len(stops)+2)
	locations = append(locations, start)
	locations = append(locations, stops...)
	locations = append(locations, end)

	m, err := o.oracle.FetchDurations(ctx, locations)
	if err != nil {
		return nil, err
	}
	if m.Size() != len(locations) {
		return nil, domain.NewRouteError(domain.ErrOracleDataMissing, "",
			fmt.Errorf("matrix covers %d locations, want %d", m.Size(), len(locations)))
	}

	search := o.search
	if o.maxStops > 0 && o.fallback != nil && len(stops) > o.maxStops {
		search = o.fallback
		logrus.WithFields(logrus.Fields{
			"stops":     len(stops),
			"max_stops": o.maxStops,
		}).Debug("stop count over exhaustive limit, using fallback search")
	}

	idx, total, err := search(ctx, m)
	if err != nil {
		return nil, domain.NewRouteError(domain.ErrOracleUnavailable, "", err)
	}

	return &domain.Route{
		Order:        lo.Map(idx, func(i int, _ int) string { return locations[i] }),
		TotalSeconds: total,
		PrettyTime:   FormatDuration(total),
	}, nil
}

// ctxCheckInterval is how many search nodes are visited between ctx checks.
const ctxCheckInterval = 4096

// ExhaustiveSearch evaluates every permutation of the intermediate stops in
// lexicographic order of their input positions and keeps the first strictly
// cheapest one. Partial paths already costing at least the best total are cut,
// which cannot change the result since durations are non-negative. Cost still
// grows factorially in the worst case.
func ExhaustiveSearch(ctx context.Context, m *domain.DurationMatrix) ([]int, float64, error) {
	n := m.Size()
	last := n - 1
	if n <= 2 {
		return []int{0, last}, m.At(0, last), nil
	}

	stops := n - 2
	best := math.Inf(1)
	bestPerm := make([]int, stops)
	perm := make([]int, 0, stops)
	used := make([]bool, n)

	var (
		visited int
		stopErr error
	)

	var walk func(cur int, cost float64)
	walk = func(cur int, cost float64) {
		if stopErr != nil {
			return
		}
		visited++
		if visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				stopErr = err
				return
			}
		}

		if len(perm) == stops {
			total := cost + m.At(cur, last)
			if total < best {
				best = total
				copy(bestPerm, perm)
			}
			return
		}
		for next := 1; next < last; next++ {
			if used[next] {
				continue
			}
			step := cost + m.At(cur, next)
			if step >= best {
				continue
			}
			used[next] = true
			perm = append(perm, next)
			walk(next, step)
			perm = perm[:len(perm)-1]
			used[next] = false
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	walk(0, 0)
	if stopErr != nil {
		return nil, 0, stopErr
	}

	order := make([]int, 0, n)
	order = append(order, 0)
	order = append(order, bestPerm...)
	order = append(order, last)
	return order, best, nil
}
