package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjector_RoundTrip(t *testing.T) {
	proj := NewProjector(testOrigin)

	for _, pt := range []orb.Point{
		testOrigin,
		{77.46, 12.83},
		{77.78, 13.14},
		{79.9, 13.0},
	} {
		p, err := proj.Forward(pt)
		require.NoError(t, err)
		back, err := proj.Inverse(p)
		require.NoError(t, err)
		assert.InDelta(t, pt.Lon(), back.Lon(), 1e-9)
		assert.InDelta(t, pt.Lat(), back.Lat(), 1e-9)
	}
}

func TestProjector_MetricDistances(t *testing.T) {
	proj := NewProjector(testOrigin)

	a, err := proj.Forward(orb.Point{77.5946, 12.9716})
	require.NoError(t, err)
	b, err := proj.Forward(orb.Point{77.5946, 12.9806})
	require.NoError(t, err)

	// 0.009° of latitude is roughly one kilometer.
	assert.InDelta(t, 995.0, planar.Distance(a, b), 5.0)
}

func TestProjector_RejectsFarLongitudes(t *testing.T) {
	proj := NewProjector(testOrigin)

	_, err := proj.Forward(orb.Point{81.0, 13.0})
	require.ErrorIs(t, err, ErrOutsideProjection)

	_, err = proj.ForwardGeometry(orb.LineString{{77.5, 13}, {70.0, 13}})
	require.ErrorIs(t, err, ErrOutsideProjection)
}

func TestProjector_SouthernHemisphere(t *testing.T) {
	proj := NewProjector(orb.Point{-43.2, -22.9})

	p, err := proj.Forward(orb.Point{-43.1, -22.95})
	require.NoError(t, err)
	back, err := proj.Inverse(p)
	require.NoError(t, err)
	assert.InDelta(t, -43.1, back.Lon(), 1e-9)
	assert.InDelta(t, -22.95, back.Lat(), 1e-9)
}

func TestTransform_PreservesTypeAndInput(t *testing.T) {
	proj := NewProjector(testOrigin)
	in := orb.Polygon{{{77.5, 12.9}, {77.6, 12.9}, {77.6, 13.0}, {77.5, 12.9}}}

	g, err := proj.ForwardGeometry(in)
	require.NoError(t, err)
	out, ok := g.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, out[0], 4)
	assert.Equal(t, 77.5, in[0][0].Lon(), "input is not modified")

	_, err = proj.ForwardGeometry(orb.Collection{orb.Point{77.5, 12.9}, orb.MultiPoint{{77.6, 12.9}}})
	require.NoError(t, err)
}
