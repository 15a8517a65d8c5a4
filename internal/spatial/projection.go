package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/im7mortal/UTM"
	"github.com/paulmach/orb"
)

// ErrOutsideProjection is returned for coordinates too far from the projector's
// central meridian to be measured with acceptable distortion.
var ErrOutsideProjection = errors.New("coordinate outside projection domain")

const (
	// maxMeridianOffset bounds how far (in degrees of longitude) a coordinate
	// may lie from the central meridian.
	maxMeridianOffset = 3.0

	// The UTM formulas are evaluated in zone 30 (central meridian -3°) after
	// shifting longitudes, which pins the central meridian anywhere we like.
	pinnedZone     = 30
	pinnedMeridian = -3.0
)

// Projector converts geographic coordinates (lon, lat degrees) to a local
// transverse Mercator frame measured in meters, and back. All layers of one
// dataset share a projector so areas, lengths and buffers are comparable.
type Projector struct {
	centralMeridian float64
	northern        bool
}

// NewProjector returns a projector whose central meridian passes through origin.
func NewProjector(origin orb.Point) *Projector {
	return &Projector{
		centralMeridian: origin.Lon(),
		northern:        origin.Lat() >= 0,
	}
}

// ProjectorFor centers a projector on a geographic bounding box.
func ProjectorFor(b orb.Bound) *Projector {
	return NewProjector(b.Center())
}

// CentralMeridian returns the longitude the projection is centered on.
func (p *Projector) CentralMeridian() float64 { return p.centralMeridian }

// Forward projects a geographic point to meters.
func (p *Projector) Forward(pt orb.Point) (orb.Point, error) {
	offset := pt.Lon() - p.centralMeridian
	if math.IsNaN(offset) || math.Abs(offset) >= maxMeridianOffset {
		return orb.Point{}, fmt.Errorf("%w: lon %v is more than %v° from %v", ErrOutsideProjection, pt.Lon(), maxMeridianOffset, p.centralMeridian)
	}
	e, n, _, _, err := UTM.FromLatLon(pt.Lat(), offset+pinnedMeridian, p.northern)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: %w", ErrOutsideProjection, err)
	}
	return orb.Point{e, n}, nil
}

// Inverse maps a projected point back to geographic coordinates.
func (p *Projector) Inverse(pt orb.Point) (orb.Point, error) {
	lat, lon, err := UTM.ToLatLon(pt.X(), pt.Y(), pinnedZone, "", p.northern)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: %w", ErrOutsideProjection, err)
	}
	return orb.Point{lon - pinnedMeridian + p.centralMeridian, lat}, nil
}

// ForwardGeometry returns a projected copy of g.
func (p *Projector) ForwardGeometry(g orb.Geometry) (orb.Geometry, error) {
	return transform(g, p.Forward)
}

// InverseGeometry returns a geographic copy of a projected g.
func (p *Projector) InverseGeometry(g orb.Geometry) (orb.Geometry, error) {
	return transform(g, p.Inverse)
}

// ForwardMultiPolygon projects a polygon set.
func (p *Projector) ForwardMultiPolygon(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	g, err := transform(mp, p.Forward)
	if err != nil {
		return nil, err
	}
	return g.(orb.MultiPolygon), nil
}

// ForwardMultiLineString projects a line set.
func (p *Projector) ForwardMultiLineString(mls orb.MultiLineString) (orb.MultiLineString, error) {
	g, err := transform(mls, p.Forward)
	if err != nil {
		return nil, err
	}
	return g.(orb.MultiLineString), nil
}

// pointFunc maps a single coordinate.
type pointFunc func(orb.Point) (orb.Point, error)

// transform applies fn to every coordinate of g and returns a new geometry of
// the same type. The input is never modified.
func transform(g orb.Geometry, fn pointFunc) (orb.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return fn(g)
	case orb.MultiPoint:
		out, err := transformPoints(g, fn)
		return orb.MultiPoint(out), err
	case orb.LineString:
		out, err := transformPoints(g, fn)
		return orb.LineString(out), err
	case orb.Ring:
		out, err := transformPoints(g, fn)
		return orb.Ring(out), err
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			pts, err := transformPoints(ls, fn)
			if err != nil {
				return nil, err
			}
			out[i] = pts
		}
		return out, nil
	case orb.Polygon:
		return transformPolygon(g, fn)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, poly := range g {
			tp, err := transformPolygon(poly, fn)
			if err != nil {
				return nil, err
			}
			out[i] = tp
		}
		return out, nil
	case orb.Collection:
		out := make(orb.Collection, len(g))
		for i, sub := range g {
			tg, err := transform(sub, fn)
			if err != nil {
				return nil, err
			}
			out[i] = tg
		}
		return out, nil
	case orb.Bound:
		return transform(g.ToPolygon(), fn)
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}

func transformPolygon(poly orb.Polygon, fn pointFunc) (orb.Polygon, error) {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		pts, err := transformPoints(ring, fn)
		if err != nil {
			return nil, err
		}
		out[i] = pts
	}
	return out, nil
}

func transformPoints(pts []orb.Point, fn pointFunc) ([]orb.Point, error) {
	out := make([]orb.Point, len(pts))
	for i, pt := range pts {
		tp, err := fn(pt)
		if err != nil {
			return nil, err
		}
		out[i] = tp
	}
	return out, nil
}
