package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

// Bengaluru city center.
var testOrigin = orb.Point{77.5946, 12.9716}

// metricFrame places fixtures by meter offsets from testOrigin.
type metricFrame struct {
	t      *testing.T
	proj   *Projector
	origin orb.Point
}

func newMetricFrame(t *testing.T) *metricFrame {
	t.Helper()
	proj := NewProjector(testOrigin)
	origin, err := proj.Forward(testOrigin)
	require.NoError(t, err)
	return &metricFrame{t: t, proj: proj, origin: origin}
}

// at returns the geographic point dx, dy meters from the origin.
func (f *metricFrame) at(dx, dy float64) orb.Point {
	f.t.Helper()
	pt, err := f.proj.Inverse(orb.Point{f.origin.X() + dx, f.origin.Y() + dy})
	require.NoError(f.t, err)
	return pt
}

// square returns a geographic square of side meters with its lower-left corner at dx, dy.
func (f *metricFrame) square(dx, dy, side float64) orb.MultiPolygon {
	return f.polygon([][2]float64{{dx, dy}, {dx + side, dy}, {dx + side, dy + side}, {dx, dy + side}})
}

// polygon closes the meter offsets into a geographic polygon.
func (f *metricFrame) polygon(offsets [][2]float64) orb.MultiPolygon {
	ring := make(orb.Ring, 0, len(offsets)+1)
	for _, o := range offsets {
		ring = append(ring, f.at(o[0], o[1]))
	}
	ring = append(ring, ring[0])
	return orb.MultiPolygon{{ring}}
}

func (f *metricFrame) line(offsets ...[2]float64) orb.MultiLineString {
	ls := make(orb.LineString, 0, len(offsets))
	for _, o := range offsets {
		ls = append(ls, f.at(o[0], o[1]))
	}
	return orb.MultiLineString{ls}
}
