package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

func TestBuildGrid_Square(t *testing.T) {
	f := newMetricFrame(t)
	ward := f.square(0, 0, 1000)
	incidents := []orb.Point{
		f.at(50, 50),
		f.at(120, 80),
		f.at(360, 40),
		f.at(950, 950),
		f.at(5000, 5000),
	}

	cells, err := BuildGrid(f.proj, ward, incidents, 300)
	require.NoError(t, err)
	require.Len(t, cells, 16, "ceil(1000/300) squared")

	byPos := make(map[[2]int]domain.GridCell, len(cells))
	total := 0
	for _, c := range cells {
		byPos[[2]int{c.Row, c.Col}] = c
		total += c.IncidentCount
		require.Len(t, c.Geometry, 1)
		assert.Len(t, c.Geometry[0], 5)
	}
	assert.Equal(t, 4, total, "the far point is outside the ward bounding box")

	assert.Equal(t, 2, byPos[[2]int{0, 0}].IncidentCount)
	assert.Equal(t, domain.GridLowRisk, byPos[[2]int{0, 0}].RiskLevel)
	assert.Equal(t, 1, byPos[[2]int{0, 1}].IncidentCount)
	assert.Equal(t, domain.GridMinorRisk, byPos[[2]int{0, 1}].RiskLevel)
	assert.Equal(t, 1, byPos[[2]int{3, 3}].IncidentCount)
	assert.Equal(t, domain.GridNoIncidents, byPos[[2]int{2, 1}].RiskLevel)
}

func TestBuildGrid_CellsAreGeographicAndKeptWhole(t *testing.T) {
	f := newMetricFrame(t)
	ward := f.square(0, 0, 1000)

	cells, err := BuildGrid(f.proj, ward, nil, 300)
	require.NoError(t, err)

	wb := ward.Bound()
	var beyond bool
	for _, c := range cells {
		assert.True(t, LooksGeographic(c.Geometry))
		if c.Geometry.Bound().Max.X() > wb.Max.X() {
			beyond = true
		}
	}
	assert.True(t, beyond, "remainder cells extend past the ward")
}

func TestBuildGrid_DropsCellsOutsidePolygon(t *testing.T) {
	f := newMetricFrame(t)
	triangle := f.polygon([][2]float64{{0, 0}, {1000, 0}, {0, 1000}})

	cells, err := BuildGrid(f.proj, triangle, nil, 250)
	require.NoError(t, err)
	assert.Less(t, len(cells), 16)
	assert.GreaterOrEqual(t, len(cells), 10)
}

func TestBuildGrid_MonotonicInCellSize(t *testing.T) {
	f := newMetricFrame(t)
	shapes := []orb.MultiPolygon{
		f.square(0, 0, 1000),
		f.polygon([][2]float64{{0, 0}, {1700, 200}, {900, 1300}}),
		f.polygon([][2]float64{{0, 0}, {2000, 0}, {2000, 300}, {300, 300}, {300, 2000}, {0, 2000}}),
	}

	for i, shape := range shapes {
		prev := 0
		for _, size := range []float64{480, 240, 120} {
			cells, err := BuildGrid(f.proj, shape, nil, size)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(cells), prev, "shape %d at %v m", i, size)
			prev = len(cells)
		}
	}
}

func TestBuildGrid_Degenerate(t *testing.T) {
	f := newMetricFrame(t)

	// Points on the central meridian project to one easting.
	flat := orb.MultiPolygon{{{
		{testOrigin.Lon(), 12.97}, {testOrigin.Lon(), 12.98}, {testOrigin.Lon(), 12.99}, {testOrigin.Lon(), 12.97},
	}}}
	_, err := BuildGrid(f.proj, flat, nil, 250)
	require.ErrorIs(t, err, ErrNoGridCells)

	_, err = BuildGrid(f.proj, orb.MultiPolygon{}, nil, 250)
	require.ErrorIs(t, err, ErrNoGridCells)
}

func TestBuildGrid_InvalidSize(t *testing.T) {
	f := newMetricFrame(t)
	_, err := BuildGrid(f.proj, f.square(0, 0, 1000), nil, 0)
	require.ErrorIs(t, err, ErrInvalidCellSize)

	_, err = BuildGrid(f.proj, f.square(0, 0, 100000), nil, 0.1)
	require.ErrorIs(t, err, ErrInvalidCellSize, "too many cells")
}

func TestValidateCellSize(t *testing.T) {
	require.NoError(t, ValidateCellSize(100, 100, 500))
	require.NoError(t, ValidateCellSize(500, 100, 500))
	require.ErrorIs(t, ValidateCellSize(99, 100, 500), ErrInvalidCellSize)
	require.ErrorIs(t, ValidateCellSize(501, 100, 500), ErrInvalidCellSize)
	require.ErrorIs(t, ValidateCellSize(-1, 100, 500), ErrInvalidCellSize)
}
