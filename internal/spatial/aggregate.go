package spatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// DefaultBufferDistance is the proximity band around each ward, in meters.
const DefaultBufferDistance = 500.0

// AreaKm2 is the planar area of a projected polygon set in square kilometers.
func AreaKm2(projected orb.MultiPolygon) float64 {
	return math.Abs(planar.Area(projected)) / 1e6
}

// LengthKm is the planar length of a projected line set in kilometers.
func LengthKm(projected orb.MultiLineString) float64 {
	return planar.Length(projected) / 1000
}

// ContainmentCounts counts, for each polygon, the points strictly inside it.
// Polygons and points must share a reference. Every polygon gets an entry.
func ContainmentCounts(polygons []orb.MultiPolygon, points []orb.Point) []int {
	counts := make([]int, len(polygons))
	for i, mp := range polygons {
		for _, pt := range points {
			if ContainsStrict(mp, pt) {
				counts[i]++
			}
		}
	}
	return counts
}

// BufferedCounts counts, for each projected polygon, the projected points
// inside the polygon expanded by distance meters. Interior points are included.
func BufferedCounts(polygons []orb.MultiPolygon, points []orb.Point, distance float64) []int {
	counts := make([]int, len(polygons))
	for i, mp := range polygons {
		for _, pt := range points {
			if WithinDistance(mp, pt, distance) {
				counts[i]++
			}
		}
	}
	return counts
}

// LengthSums attributes the full length of every line set touching a polygon
// to that polygon. A line crossing several polygons counts toward each of them.
func LengthSums(polygons []orb.MultiPolygon, lines []orb.MultiLineString) []float64 {
	lengths := make([]float64, len(lines))
	for j, mls := range lines {
		lengths[j] = LengthKm(mls)
	}

	sums := make([]float64, len(polygons))
	for i, mp := range polygons {
		for j, mls := range lines {
			if len(mls) == 0 {
				continue
			}
			if LineIntersects(mp, mls) {
				sums[i] += lengths[j]
			}
		}
	}
	return sums
}

// Options tunes the aggregation.
type Options struct {
	BufferDistance float64
}

// Result is the output of one aggregation run.
type Result struct {
	Wards  []domain.Ward
	Drains []domain.DrainSegment

	// SkippedIncidents counts incidents excluded from the joins because
	// their geometry is not a point.
	SkippedIncidents int

	// OutOfFrameIncidents and OutOfFrameDrains count features too far from
	// the wards to be projected. They cannot touch any ward and are left out
	// of the joins.
	OutOfFrameIncidents int
	OutOfFrameDrains    int
}

// Aggregate joins incidents and drains against the wards. The returned wards
// carry area, direct and buffered incident counts and intersecting drain
// length; drains carry their measured length. Only a ward outside the
// projection frame is an error; such incidents and drains are counted in the
// result and skipped. Inputs are not modified.
func Aggregate(proj *Projector, wards []domain.Ward, incidents []domain.IncidentPoint, drains []domain.DrainSegment, opts Options) (Result, error) {
	if opts.BufferDistance <= 0 {
		opts.BufferDistance = DefaultBufferDistance
	}

	geoWards := make([]orb.MultiPolygon, len(wards))
	projWards := make([]orb.MultiPolygon, len(wards))
	for i, w := range wards {
		p, err := proj.ForwardMultiPolygon(w.Geometry)
		if err != nil {
			return Result{}, fmt.Errorf("project ward %q: %w", w.Name, err)
		}
		geoWards[i] = w.Geometry
		projWards[i] = p
	}

	var (
		geoPoints  []orb.Point
		projPoints []orb.Point
		skipped    int
		outside    int
	)
	for _, inc := range incidents {
		pt, ok := inc.Point()
		if !ok {
			skipped++
			continue
		}
		pp, err := proj.Forward(pt)
		if err != nil {
			outside++
			continue
		}
		geoPoints = append(geoPoints, pt)
		projPoints = append(projPoints, pp)
	}

	outDrains := make([]domain.DrainSegment, len(drains))
	projLines := make([]orb.MultiLineString, len(drains))
	outsideDrains := 0
	for i, d := range drains {
		outDrains[i] = d
		p, err := proj.ForwardMultiLineString(d.Geometry)
		if err != nil {
			outsideDrains++
			continue
		}
		projLines[i] = p
		outDrains[i].LengthKm = LengthKm(p)
	}

	direct := ContainmentCounts(geoWards, geoPoints)
	buffered := BufferedCounts(projWards, projPoints, opts.BufferDistance)
	drainKm := LengthSums(projWards, projLines)

	outWards := make([]domain.Ward, len(wards))
	for i, w := range wards {
		w.AreaKm2 = AreaKm2(projWards[i])
		w.IncidentCount = direct[i]
		w.BufferedIncidentCount = buffered[i]
		w.DrainLengthKm = drainKm[i]
		outWards[i] = w
	}

	return Result{
		Wards:               outWards,
		Drains:              outDrains,
		SkippedIncidents:    skipped,
		OutOfFrameIncidents: outside,
		OutOfFrameDrains:    outsideDrains,
	}, nil
}
