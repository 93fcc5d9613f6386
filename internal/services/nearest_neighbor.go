package services

import (
	"context"
	"fmt"
	"math"

	"carpool-route-service/internal/domain"
)

const (
	SearchExhaustive      = "exhaustive"
	SearchNearestNeighbor = "nearest_neighbor"
)

// SearchByName resolves a configured stop search strategy.
func SearchByName(name string) (StopSearch, error) {
	switch name {
	case "", SearchExhaustive:
		return ExhaustiveSearch, nil
	case SearchNearestNeighbor:
		return NearestNeighborSearch, nil
	default:
		return nil, fmt.Errorf("unknown stop search %q", name)
	}
}

// NearestNeighborSearch orders stops with a greedy nearest-neighbor walk.
//
// Each step moves to the unvisited stop with the smallest travel duration from
// the current location; the leg end is appended last. It does not attempt
// global optimization and is meant for groups too large for ExhaustiveSearch.
// Ties go to the stop listed first.
func NearestNeighborSearch(ctx context.Context, m *domain.DurationMatrix) ([]int, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	n := m.Size()
	last := n - 1
	if n <= 2 {
		return []int{0, last}, m.At(0, last), nil
	}

	visited := make([]bool, n)
	order := make([]int, 0, n)
	order = append(order, 0)

	current := 0
	total := 0.0
	for len(order) < last {
		best := -1
		minDuration := math.Inf(1)

		// Select next stop by minimum travel duration (greedy step).
		for next := 1; next < last; next++ {
			if visited[next] {
				continue
			}
			if d := m.At(current, next); d < minDuration {
				minDuration = d
				best = next
			}
		}

		visited[best] = true
		order = append(order, best)
		total += minDuration
		current = best
	}

	total += m.At(current, last)
	order = append(order, last)
	return order, total, nil
}
