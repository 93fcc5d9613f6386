package domain

import "fmt"

// DurationMatrix holds travel durations in seconds between every ordered pair of
// locations passed to a single oracle call. Index i refers to Locations[i].
// A matrix handed to the optimizer is always fully populated.
type DurationMatrix struct {
	Locations []string
	seconds   []float64
}

// NewDurationMatrix returns a zeroed square matrix for the given locations.
func NewDurationMatrix(locations []string) *DurationMatrix {
	n := len(locations)
	locs := make([]string, n)
	copy(locs, locations)
	return &DurationMatrix{
		Locations: locs,
		seconds:   make([]float64, n*n),
	}
}

// NewDurationMatrixFromRows builds a matrix from row-major durations.
// rows must be len(locations) x len(locations) and non-negative.
func NewDurationMatrixFromRows(locations []string, rows [][]float64) (*DurationMatrix, error) {
	m := NewDurationMatrix(locations)
	n := m.Size()
	if len(rows) != n {
		return nil, fmt.Errorf("duration matrix: got %d rows for %d locations", len(rows), n)
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("duration matrix: row %d has %d columns, want %d", i, len(row), n)
		}
		for j, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("duration matrix: negative duration %v at (%d,%d)", v, i, j)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

func (m *DurationMatrix) Size() int { return len(m.Locations) }

func (m *DurationMatrix) At(from, to int) float64 {
	return m.seconds[from*len(m.Locations)+to]
}

func (m *DurationMatrix) Set(from, to int, seconds float64) {
	m.seconds[from*len(m.Locations)+to] = seconds
}
