package traveltime

import (
	"context"
	"fmt"
	"sync"

	"carpool-route-service/internal/domain"
)

type MockPair struct {
	From, To string
	Seconds  float64
}

// MockOracle serves durations from a fixed pair table and records every call.
// Pairs from a location to itself default to zero.
type MockOracle struct {
	mu    sync.Mutex
	m     map[string]float64
	calls [][]string

	// FailWhen, if set, is consulted before each call; a non-nil error is returned as is.
	FailWhen func(locations []string) error
}

func NewMockOracle(pairs []MockPair) *MockOracle {
	m := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		m[p.From+"|"+p.To] = p.Seconds
	}
	return &MockOracle{m: m}
}

func (o *MockOracle) FetchDurations(ctx context.Context, locations []string) (*domain.DurationMatrix, error) {
	o.mu.Lock()
	call := make([]string, len(locations))
	copy(call, locations)
	o.calls = append(o.calls, call)
	o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, domain.NewRouteError(domain.ErrOracleUnavailable, "", err)
	}

	if o.FailWhen != nil {
		if err := o.FailWhen(call); err != nil {
			return nil, err
		}
	}

	m := domain.NewDurationMatrix(call)
	for i, from := range call {
		for j, to := range call {
			secs, ok := o.m[from+"|"+to]
			if !ok {
				if from == to {
					continue
				}
				return nil, domain.NewRouteError(domain.ErrOracleDataMissing, "",
					fmt.Errorf("missing pair %q -> %q", from, to))
			}
			m.Set(i, j, secs)
		}
	}

	return m, nil
}

// Calls returns the location lists of every call so far.
func (o *MockOracle) Calls() [][]string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([][]string, len(o.calls))
	copy(out, o.calls)
	return out
}
