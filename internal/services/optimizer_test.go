package services

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"carpool-route-service/internal/adapters/traveltime"
	"carpool-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matrixOracle serves a fixed row-major matrix regardless of the labels asked for.
type matrixOracle struct {
	rows  [][]float64
	calls int
}

func (o *matrixOracle) FetchDurations(ctx context.Context, locations []string) (*domain.DurationMatrix, error) {
	o.calls++
	return domain.NewDurationMatrixFromRows(locations, o.rows)
}

func TestOptimizerEndToEndScenario(t *testing.T) {
	pairs := []traveltime.MockPair{
		{From: "123 Main St", To: "A Ave", Seconds: 300},
		{From: "123 Main St", To: "B Blvd", Seconds: 500},
		{From: "123 Main St", To: "Dest Plaza", Seconds: 700},
		{From: "A Ave", To: "B Blvd", Seconds: 200},
		{From: "B Blvd", To: "A Ave", Seconds: 250},
		{From: "A Ave", To: "Dest Plaza", Seconds: 400},
		{From: "B Blvd", To: "Dest Plaza", Seconds: 350},
		{From: "A Ave", To: "123 Main St", Seconds: 300},
		{From: "B Blvd", To: "123 Main St", Seconds: 500},
		{From: "Dest Plaza", To: "123 Main St", Seconds: 700},
		{From: "Dest Plaza", To: "A Ave", Seconds: 400},
		{From: "Dest Plaza", To: "B Blvd", Seconds: 350},
	}
	oracle := traveltime.NewMockOracle(pairs)

	route, err := NewOptimizer(oracle).Optimize(context.Background(), "123 Main St", []string{"A Ave", "B Blvd"}, "Dest Plaza")
	require.NoError(t, err)

	assert.Equal(t, []string{"123 Main St", "A Ave", "B Blvd", "Dest Plaza"}, route.Order)
	assert.Equal(t, 850.0, route.TotalSeconds)
	assert.Equal(t, "14m 10s", route.PrettyTime)

	calls := oracle.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"123 Main St", "A Ave", "B Blvd", "Dest Plaza"}, calls[0])
}

func TestOptimizerZeroStops(t *testing.T) {
	oracle := traveltime.NewMockOracle([]traveltime.MockPair{
		{From: "A", To: "B", Seconds: 612.4},
		{From: "B", To: "A", Seconds: 100},
	})

	route, err := NewOptimizer(oracle).Optimize(context.Background(), "A", nil, "B")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, route.Order)
	assert.Equal(t, 612.4, route.TotalSeconds)
	assert.Equal(t, "10m 12s", route.PrettyTime)
}

func TestOptimizerMissingStartSkipsOracle(t *testing.T) {
	oracle := traveltime.NewMockOracle(nil)

	for _, start := range []string{"", "   "} {
		route, err := NewOptimizer(oracle).Optimize(context.Background(), start, []string{"A"}, "B")
		assert.Nil(t, route)
		assert.ErrorIs(t, err, domain.ErrMissingStart)
	}
	assert.Empty(t, oracle.Calls())
}

func TestOptimizerTieBreakKeepsFirstPermutation(t *testing.T) {
	// S X Y E: both S-X-Y-E and S-Y-X-E cost 300.
	rows := [][]float64{
		{0, 100, 100, 900},
		{100, 0, 100, 100},
		{100, 100, 0, 100},
		{900, 100, 100, 0},
	}

	route, err := NewOptimizer(&matrixOracle{rows: rows}).Optimize(context.Background(), "S", []string{"X", "Y"}, "E")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "X", "Y", "E"}, route.Order)

	route, err = NewOptimizer(&matrixOracle{rows: rows}).Optimize(context.Background(), "S", []string{"Y", "X"}, "E")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "Y", "X", "E"}, route.Order)
	assert.Equal(t, 300.0, route.TotalSeconds)
}

func TestOptimizerDeterministicUnderFixedMatrix(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := randomRows(rng, 7)
	stops := []string{"s1", "s2", "s3", "s4", "s5"}

	opt := NewOptimizer(&matrixOracle{rows: rows})
	first, err := opt.Optimize(context.Background(), "start", stops, "end")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := opt.Optimize(context.Background(), "start", stops, "end")
		require.NoError(t, err)
		assert.Equal(t, first.TotalSeconds, again.TotalSeconds, "run %d", i)
		assert.Equal(t, first.Order, again.Order, "run %d", i)
	}
}

func TestOptimizerMatchesIndependentEnumeration(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for stops := 0; stops <= 8; stops++ {
		rows := randomRows(rng, stops+2)
		labels := make([]string, stops)
		for i := range labels {
			labels[i] = string(rune('a' + i))
		}

		route, err := NewOptimizer(&matrixOracle{rows: rows}).Optimize(context.Background(), "start", labels, "end")
		require.NoError(t, err, "stops=%d", stops)

		want := heapMinimum(rows)
		assert.Equal(t, want, route.TotalSeconds, "stops=%d", stops)
		assert.Equal(t, want, pathCost(rows, route.Order, append(append([]string{"start"}, labels...), "end")), "stops=%d", stops)
	}
}

func TestOptimizerPropagatesOracleError(t *testing.T) {
	rejected := domain.NewRouteError(domain.ErrOracleRejected, "MAX_ROUTE_LENGTH_EXCEEDED", nil)
	oracle := traveltime.NewMockOracle(nil)
	oracle.FailWhen = func([]string) error { return rejected }

	_, err := NewOptimizer(oracle).Optimize(context.Background(), "A", []string{"B"}, "C")
	assert.Same(t, rejected, err)
}

func TestOptimizerKeepsDuplicateStops(t *testing.T) {
	oracle := traveltime.NewMockOracle([]traveltime.MockPair{
		{From: "S", To: "A", Seconds: 10},
		{From: "A", To: "S", Seconds: 10},
		{From: "S", To: "E", Seconds: 30},
		{From: "E", To: "S", Seconds: 30},
		{From: "A", To: "E", Seconds: 20},
		{From: "E", To: "A", Seconds: 20},
	})

	route, err := NewOptimizer(oracle).Optimize(context.Background(), "S", []string{"A", "A"}, "E")
	require.NoError(t, err)

	assert.Equal(t, []string{"S", "A", "A", "E"}, oracle.Calls()[0])
	assert.Len(t, route.Order, 4)
	assert.Equal(t, 30.0, route.TotalSeconds)
}

func TestExhaustiveSearchStopsAtDeadline(t *testing.T) {
	// Every leg costs the same, so no partial path can be cut and twelve stops
	// would take minutes to enumerate.
	const stops = 12
	labels := make([]string, stops)
	for i := range labels {
		labels[i] = string(rune('a' + i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	opt := NewOptimizerWithSearch(&matrixOracle{rows: uniformRows(stops+2, 100)}, ExhaustiveSearch)
	began := time.Now()
	route, err := opt.Optimize(ctx, "start", labels, "end")

	assert.Less(t, time.Since(began), time.Second)
	assert.Nil(t, route)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExhaustiveSearchCanceledBeforeStart(t *testing.T) {
	m, err := domain.NewDurationMatrixFromRows(make([]string, 5), uniformRows(5, 100))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	order, _, err := ExhaustiveSearch(ctx, m)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, order)
}

func TestOptimizerFallsBackAboveStopLimit(t *testing.T) {
	const stops = 12
	labels := make([]string, stops)
	for i := range labels {
		labels[i] = string(rune('a' + i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	route, err := NewOptimizer(&matrixOracle{rows: uniformRows(stops+2, 100)}).Optimize(ctx, "start", labels, "end")
	require.NoError(t, err)

	require.Len(t, route.Order, stops+2)
	assert.Equal(t, "start", route.Order[0])
	assert.Equal(t, "end", route.Order[stops+1])
	assert.ElementsMatch(t, labels, route.Order[1:stops+1])
	assert.Equal(t, float64(100*(stops+1)), route.TotalSeconds)
}

func TestOptimizerStopLimitKeepsExhaustiveAtLimit(t *testing.T) {
	// Greedy takes X first (10) then pays 1000 for X->Y; the optimum goes Y first.
	rows := [][]float64{
		{0, 10, 20, 900},
		{10, 0, 1000, 10},
		{20, 10, 0, 1000},
		{900, 10, 1000, 0},
	}

	limited := NewOptimizerWithSearch(&matrixOracle{rows: rows}, ExhaustiveSearch).WithStopLimit(2, NearestNeighborSearch)
	route, err := limited.Optimize(context.Background(), "S", []string{"X", "Y"}, "E")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "Y", "X", "E"}, route.Order)
	assert.Equal(t, 40.0, route.TotalSeconds)

	below := NewOptimizerWithSearch(&matrixOracle{rows: rows}, ExhaustiveSearch).WithStopLimit(1, NearestNeighborSearch)
	route, err = below.Optimize(context.Background(), "S", []string{"X", "Y"}, "E")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "X", "Y", "E"}, route.Order)
	assert.Equal(t, 2010.0, route.TotalSeconds)
}

func randomRows(rng *rand.Rand, n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if i != j {
				rows[i][j] = float64(60 + rng.Intn(3600))
			}
		}
	}
	return rows
}

func uniformRows(n int, seconds float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if i != j {
				rows[i][j] = seconds
			}
		}
	}
	return rows
}

// heapMinimum enumerates stop orders with Heap's algorithm, independent of the
// search under test.
func heapMinimum(rows [][]float64) float64 {
	n := len(rows)
	last := n - 1
	perm := make([]int, 0, n-2)
	for i := 1; i < last; i++ {
		perm = append(perm, i)
	}

	cost := func(p []int) float64 {
		prev, total := 0, 0.0
		for _, s := range p {
			total += rows[prev][s]
			prev = s
		}
		return total + rows[prev][last]
	}

	best := math.Inf(1)
	var generate func(k int)
	generate = func(k int) {
		if k <= 1 {
			if c := cost(perm); c < best {
				best = c
			}
			return
		}
		generate(k - 1)
		for i := 0; i < k-1; i++ {
			if k%2 == 0 {
				perm[i], perm[k-1] = perm[k-1], perm[i]
			} else {
				perm[0], perm[k-1] = perm[k-1], perm[0]
			}
			generate(k - 1)
		}
	}
	generate(len(perm))
	return best
}

func pathCost(rows [][]float64, order []string, labels []string) float64 {
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	total := 0.0
	for i := 0; i+1 < len(order); i++ {
		total += rows[index[order[i]]][index[order[i+1]]]
	}
	return total
}
