package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

var (
	// ErrNoGridCells is returned when no cell of the requested size intersects
	// the ward. Callers report it as "no hotspot data", not as a failure.
	ErrNoGridCells = errors.New("no grid cells intersect the ward")

	// ErrInvalidCellSize is returned for a cell size outside the accepted range.
	ErrInvalidCellSize = errors.New("invalid grid cell size")
)

// maxGridCells caps the tiling of a single ward.
const maxGridCells = 1 << 18

// ValidateCellSize checks that size is finite and within [lo, hi] meters.
func ValidateCellSize(size, lo, hi float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCellSize, size)
	}
	if size < lo || size > hi {
		return fmt.Errorf("%w: %v outside [%v, %v]", ErrInvalidCellSize, size, lo, hi)
	}
	return nil
}

// BuildGrid tiles a geographic ward into square cells of size meters and
// counts incidents per cell.
//
// The tiling covers the ward's projected bounding box from its minimum corner
// with ceil(extent/size) columns and rows. Cells that do not touch the ward
// are dropped; the rest are kept whole, reprojected to geographic coordinates
// and counted inclusive of their boundary.
func BuildGrid(proj *Projector, ward orb.MultiPolygon, incidents []orb.Point, size float64) ([]domain.GridCell, error) {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCellSize, size)
	}

	projected, err := proj.ForwardMultiPolygon(ward)
	if err != nil {
		return nil, fmt.Errorf("project ward: %w", err)
	}
	if len(projected) == 0 || AreaKm2(projected) == 0 {
		return nil, ErrNoGridCells
	}

	b := projected.Bound()
	cols := int(math.Ceil((b.Max.X() - b.Min.X()) / size))
	rows := int(math.Ceil((b.Max.Y() - b.Min.Y()) / size))
	if cols <= 0 || rows <= 0 {
		return nil, ErrNoGridCells
	}
	if cols*rows > maxGridCells {
		return nil, fmt.Errorf("%w: %v m yields %d cells", ErrInvalidCellSize, size, cols*rows)
	}

	candidates := incidentsInBound(ward.Bound(), incidents)

	var cells []domain.GridCell
	for row := range rows {
		for col := range cols {
			x0 := b.Min.X() + float64(col)*size
			y0 := b.Min.Y() + float64(row)*size
			cell := orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x0 + size, y0 + size}}
			if !BoundIntersects(projected, cell) {
				continue
			}

			g, err := proj.InverseGeometry(cell.ToRing())
			if err != nil {
				return nil, fmt.Errorf("unproject cell %d,%d: %w", row, col, err)
			}
			ring := g.(orb.Ring)
			count := countInRing(ring, candidates)
			cells = append(cells, domain.GridCell{
				Row:           row,
				Col:           col,
				Geometry:      orb.Polygon{ring},
				IncidentCount: count,
				RiskLevel:     domain.GridRiskLevel(count),
			})
		}
	}
	if len(cells) == 0 {
		return nil, ErrNoGridCells
	}
	return cells, nil
}

// incidentsInBound pre-filters points to a bounding box, inclusive of its edges.
func incidentsInBound(b orb.Bound, points []orb.Point) []orb.Point {
	out := make([]orb.Point, 0, len(points))
	for _, pt := range points {
		if b.Contains(pt) {
			out = append(out, pt)
		}
	}
	return out
}

func countInRing(ring orb.Ring, points []orb.Point) int {
	b := ring.Bound()
	n := 0
	for _, pt := range points {
		if b.Contains(pt) && planar.RingContains(ring, pt) {
			n++
		}
	}
	return n
}
