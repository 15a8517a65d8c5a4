package spatial

import (
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

func TestAggregate_SingleSquareWard(t *testing.T) {
	f := newMetricFrame(t)

	wards := []domain.Ward{{Name: "Square", Code: 1, Geometry: f.square(0, 0, 1000)}}
	incidents := []domain.IncidentPoint{
		{Source: domain.SourceFloodProne, Name: "a", Geometry: f.at(100, 100)},
		{Source: domain.SourceVulnerable, Name: "b", Geometry: f.at(500, 500)},
		{Source: domain.SourceLowLying, Name: "c", Geometry: f.at(900, 250)},
	}
	drains := []domain.DrainSegment{{Name: "main", Geometry: f.line([2]float64{-500, 400}, [2]float64{1500, 400})}}

	res, err := Aggregate(f.proj, wards, incidents, drains, Options{BufferDistance: 500})
	require.NoError(t, err)
	require.Len(t, res.Wards, 1)

	w := res.Wards[0]
	assert.InDelta(t, 1.0, w.AreaKm2, 1e-6)
	assert.Equal(t, 3, w.IncidentCount)
	assert.Equal(t, 3, w.BufferedIncidentCount)
	assert.InDelta(t, 2.0, w.DrainLengthKm, 1e-6)
	assert.InDelta(t, 2.0, res.Drains[0].LengthKm, 1e-6)
	assert.Zero(t, res.SkippedIncidents)

	scored := domain.ScoreWards(res.Wards)
	s := scored[0]
	assert.InDelta(t, 3.0, s.IncidentDensity, 1e-5)
	assert.InDelta(t, 2.0, s.DrainageDensity, 1e-5)
	assert.Zero(t, s.DrainageRiskFactor)
	assert.InDelta(t, 1.0, s.NormalizedIncidentDensity, 1e-12)
	assert.InDelta(t, 100.0, s.CompositeIndex, 1e-9)
	assert.Equal(t, domain.LevelExtremeVulnerability, s.ResilienceLevel)

	assert.Zero(t, wards[0].IncidentCount, "input wards are not modified")
}

func TestAggregate_BufferCountsNearbyPoints(t *testing.T) {
	f := newMetricFrame(t)

	wards := []domain.Ward{
		{Name: "West", Code: 1, Geometry: f.square(0, 0, 1000)},
		{Name: "East", Code: 2, Geometry: f.square(3000, 0, 1000)},
	}
	incidents := []domain.IncidentPoint{
		{Name: "inside-west", Geometry: f.at(500, 500)},
		{Name: "near-west", Geometry: f.at(1300, 500)},
		{Name: "far", Geometry: f.at(2000, 500)},
		{Name: "on-east-corner", Geometry: f.at(3000, 0)},
		{Name: "area-record", Geometry: f.square(100, 100, 10)},
	}

	res, err := Aggregate(f.proj, wards, incidents, nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Wards[0].IncidentCount)
	assert.Equal(t, 2, res.Wards[0].BufferedIncidentCount)
	assert.Equal(t, 0, res.Wards[1].IncidentCount, "boundary points are not strictly within")
	assert.Equal(t, 1, res.Wards[1].BufferedIncidentCount)
	assert.Equal(t, 1, res.SkippedIncidents)
	assert.Zero(t, res.Wards[1].DrainLengthKm)
}

func TestAggregate_DrainCountsTowardEveryTouchedWard(t *testing.T) {
	f := newMetricFrame(t)

	wards := []domain.Ward{
		{Name: "A", Geometry: f.square(0, 0, 1000)},
		{Name: "B", Geometry: f.square(1000, 0, 1000)},
		{Name: "C", Geometry: f.square(0, 5000, 1000)},
	}
	drains := []domain.DrainSegment{
		{Name: "long", Geometry: f.line([2]float64{500, 500}, [2]float64{1500, 500}, [2]float64{1500, 1500})},
	}

	res, err := Aggregate(f.proj, wards, nil, drains, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Wards[0].DrainLengthKm, 1e-6)
	assert.InDelta(t, 2.0, res.Wards[1].DrainLengthKm, 1e-6)
	assert.Zero(t, res.Wards[2].DrainLengthKm)
}

func TestAggregate_FeaturesOutsideFrameAreSkipped(t *testing.T) {
	f := newMetricFrame(t)

	wards := []domain.Ward{{Name: "Square", Code: 1, Geometry: f.square(0, 0, 1000)}}
	incidents := []domain.IncidentPoint{
		{Name: "inside", Geometry: f.at(500, 500)},
		{Name: "null-island", Geometry: orb.Point{0, 0}},
	}
	drains := []domain.DrainSegment{
		{Name: "local", Geometry: f.line([2]float64{-500, 400}, [2]float64{1500, 400})},
		{Name: "elsewhere", Geometry: orb.MultiLineString{{{0, 0}, {0.01, 0.01}}}},
	}

	res, err := Aggregate(f.proj, wards, incidents, drains, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Wards[0].IncidentCount)
	assert.Equal(t, 1, res.Wards[0].BufferedIncidentCount)
	assert.Equal(t, 1, res.OutOfFrameIncidents)
	assert.Zero(t, res.SkippedIncidents)

	require.Len(t, res.Drains, 2)
	assert.Equal(t, 1, res.OutOfFrameDrains)
	assert.InDelta(t, 2.0, res.Wards[0].DrainLengthKm, 1e-6)
	assert.Equal(t, "elsewhere", res.Drains[1].Name)
	assert.Zero(t, res.Drains[1].LengthKm)
}

func TestAggregate_ProjectionError(t *testing.T) {
	f := newMetricFrame(t)
	wards := []domain.Ward{{Name: "far", Geometry: orb.MultiPolygon{{{{90, 10}, {91, 10}, {91, 11}, {90, 10}}}}}}

	_, err := Aggregate(f.proj, wards, nil, nil, Options{})
	require.ErrorIs(t, err, ErrOutsideProjection)
	assert.Contains(t, err.Error(), `ward "far"`)
}

func TestBufferedCountsDominateContainment(t *testing.T) {
	f := newMetricFrame(t)
	rng := rand.New(rand.NewPCG(7, 11))

	geoWards := []orb.MultiPolygon{
		f.square(0, 0, 1200),
		f.polygon([][2]float64{{2000, 0}, {3500, 300}, {2800, 1800}}),
		f.polygon([][2]float64{{0, 2000}, {900, 2000}, {900, 2300}, {300, 2300}, {300, 3000}, {0, 3000}}),
	}
	var geoPts []orb.Point
	for range 400 {
		geoPts = append(geoPts, f.at(rng.Float64()*4000-250, rng.Float64()*3500-250))
	}

	projWards := make([]orb.MultiPolygon, len(geoWards))
	for i, w := range geoWards {
		p, err := f.proj.ForwardMultiPolygon(w)
		require.NoError(t, err)
		projWards[i] = p
	}
	projPts := make([]orb.Point, len(geoPts))
	for i, pt := range geoPts {
		p, err := f.proj.Forward(pt)
		require.NoError(t, err)
		projPts[i] = p
	}

	direct := ContainmentCounts(geoWards, geoPts)
	buffered := BufferedCounts(projWards, projPts, 500)
	for i := range geoWards {
		assert.GreaterOrEqual(t, buffered[i], direct[i], "ward %d", i)
	}
	assert.Positive(t, direct[0])
}

func TestCountsHaveEntryPerPolygon(t *testing.T) {
	polys := []orb.MultiPolygon{unitSquare, unitSquare}
	assert.Equal(t, []int{0, 0}, ContainmentCounts(polys, nil))
	assert.Equal(t, []int{0, 0}, BufferedCounts(polys, nil, 10))
	assert.Equal(t, []float64{0, 0}, LengthSums(polys, nil))
}
