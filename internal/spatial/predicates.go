package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ContainsStrict reports whether pt lies in the interior of mp. Points on a
// ring boundary are not contained.
func ContainsStrict(mp orb.MultiPolygon, pt orb.Point) bool {
	if !mp.Bound().Contains(pt) {
		return false
	}
	return planar.MultiPolygonContains(mp, pt) && DistanceToBoundary(mp, pt) > 0
}

// WithinDistance reports whether pt lies inside mp or closer than d to its
// boundary, which is membership in the polygon buffered by d.
func WithinDistance(mp orb.MultiPolygon, pt orb.Point, d float64) bool {
	if !mp.Bound().Pad(d).Contains(pt) {
		return false
	}
	if planar.MultiPolygonContains(mp, pt) {
		return true
	}
	return DistanceToBoundary(mp, pt) < d
}

// DistanceToBoundary is the planar distance from pt to the nearest ring edge of mp.
func DistanceToBoundary(mp orb.MultiPolygon, pt orb.Point) float64 {
	best := math.Inf(1)
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				best = min(best, planar.DistanceFromSegment(ring[i-1], ring[i], pt))
			}
		}
	}
	return best
}

// LineIntersects reports whether any part of the line set touches mp.
func LineIntersects(mp orb.MultiPolygon, mls orb.MultiLineString) bool {
	if !mp.Bound().Intersects(mls.Bound()) {
		return false
	}
	for _, ls := range mls {
		for _, pt := range ls {
			if planar.MultiPolygonContains(mp, pt) {
				return true
			}
		}
		for i := 1; i < len(ls); i++ {
			if edgeCrossesBoundary(mp, ls[i-1], ls[i]) {
				return true
			}
		}
	}
	return false
}

// BoundIntersects reports whether the rectangle b shares any point with mp.
func BoundIntersects(mp orb.MultiPolygon, b orb.Bound) bool {
	if !mp.Bound().Intersects(b) {
		return false
	}
	rect := b.ToRing()
	for _, corner := range rect {
		if planar.MultiPolygonContains(mp, corner) {
			return true
		}
	}
	for _, poly := range mp {
		for _, ring := range poly {
			for _, pt := range ring {
				if b.Contains(pt) {
					return true
				}
			}
		}
	}
	for i := 1; i < len(rect); i++ {
		if edgeCrossesBoundary(mp, rect[i-1], rect[i]) {
			return true
		}
	}
	return false
}

func edgeCrossesBoundary(mp orb.MultiPolygon, a, b orb.Point) bool {
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				if segmentsIntersect(a, b, ring[i-1], ring[i]) {
					return true
				}
			}
		}
	}
	return false
}

// segmentsIntersect reports whether segments p1p2 and q1q2 share a point,
// including touching endpoints and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

// cross is the z component of (b-a) x (c-a).
func cross(a, b, c orb.Point) float64 {
	return (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
}

// onSegment reports whether c, known to be collinear with ab, lies within ab's extent.
func onSegment(a, b, c orb.Point) bool {
	return min(a.X(), b.X()) <= c.X() && c.X() <= max(a.X(), b.X()) &&
		min(a.Y(), b.Y()) <= c.Y() && c.Y() <= max(a.Y(), b.Y())
}
