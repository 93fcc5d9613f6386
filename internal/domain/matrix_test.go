package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationMatrixFromRows(t *testing.T) {
	locs := []string{"A", "B"}
	m, err := NewDurationMatrixFromRows(locs, [][]float64{{0, 300}, {450, 0}})
	require.NoError(t, err)

	assert.Equal(t, 2, m.Size())
	assert.Equal(t, 300.0, m.At(0, 1))
	assert.Equal(t, 450.0, m.At(1, 0), "matrix is not assumed symmetric")

	locs[0] = "changed"
	assert.Equal(t, "A", m.Locations[0])
}

func TestDurationMatrixFromRowsValidates(t *testing.T) {
	_, err := NewDurationMatrixFromRows([]string{"A", "B"}, [][]float64{{0, 1}})
	assert.Error(t, err)

	_, err = NewDurationMatrixFromRows([]string{"A", "B"}, [][]float64{{0, 1}, {1}})
	assert.Error(t, err)

	_, err = NewDurationMatrixFromRows([]string{"A", "B"}, [][]float64{{0, -1}, {1, 0}})
	assert.Error(t, err)
}

func TestGroupHelpers(t *testing.T) {
	g := Group{StartingAddress: "  ", PickupAddresses: []string{"A", "B"}}
	assert.False(t, g.HasStart())

	stops := g.Stops()
	stops[0] = "Z"
	assert.Equal(t, "A", g.PickupAddresses[0])

	g.BestReturnRouteError = NewRouteError(ErrMissingStart, "", nil)
	assert.True(t, g.Failed())
	g.ClearRoutes()
	assert.False(t, g.Failed())

	run := Run{Groups: []Group{
		{BestRouteError: NewRouteError(ErrMissingStart, "", nil), BestReturnRouteError: NewRouteError(ErrMissingStart, "", nil)},
		{BestRoute: &Route{}},
	}}
	assert.Equal(t, 2, run.FailedLegs())
}
