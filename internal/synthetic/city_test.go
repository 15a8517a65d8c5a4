package synthetic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

func TestCity_Defaults(t *testing.T) {
	ds, err := City(Options{Seed: 1})
	require.NoError(t, err)

	assert.Len(t, ds.Wards, 9)
	assert.Len(t, ds.Incidents, 60)
	assert.Len(t, ds.Drains, 2)
	assert.Equal(t, "synthetic-1-3x3", ds.Fingerprint)

	for i, w := range ds.Wards {
		assert.Equal(t, i+1, w.Code)
	}
}

func TestCity_IncidentsLieInTheirWard(t *testing.T) {
	ds, err := City(Options{Seed: 42, Rows: 2, Cols: 4, Incidents: 40})
	require.NoError(t, err)

	byName := make(map[string]domain.Ward, len(ds.Wards))
	for _, w := range ds.Wards {
		byName[w.Name] = w
	}
	for _, inc := range ds.Incidents {
		pt, ok := inc.Point()
		require.True(t, ok)
		ward, ok := byName[inc.WardName]
		require.True(t, ok, inc.WardName)
		assert.True(t, spatial.ContainsStrict(ward.Geometry, pt), inc.Name)
	}
}

func TestCity_Deterministic(t *testing.T) {
	a, err := City(Options{Seed: 7})
	require.NoError(t, err)
	b, err := City(Options{Seed: 7})
	require.NoError(t, err)

	if diff := cmp.Diff(a.Incidents, b.Incidents); diff != "" {
		t.Errorf("same seed produced different incidents (-a +b):\n%s", diff)
	}
}

func TestCity_ScoresEndToEnd(t *testing.T) {
	ds, err := City(Options{Seed: 3})
	require.NoError(t, err)

	proj := spatial.NewProjector(Bengaluru)
	res, err := spatial.Aggregate(proj, ds.Wards, ds.Incidents, ds.Drains, spatial.Options{})
	require.NoError(t, err)

	scored := domain.ScoreWards(res.Wards)
	top := domain.MostVulnerable(scored, 1)
	require.Len(t, top, 1)
	assert.InDelta(t, 100.0, top[0].CompositeIndex, 1e-9)

	total := 0
	for _, w := range scored {
		total += w.IncidentCount
		assert.InDelta(t, 1.0, w.AreaKm2, 0.01)
	}
	assert.Equal(t, len(ds.Incidents), total, "interior incidents are counted exactly once")
}

func TestRainfall(t *testing.T) {
	recs := Rainfall(2000, 10, 5)
	require.Len(t, recs, 10)
	assert.Equal(t, 2000, recs[0].Year)
	assert.Equal(t, 2009, recs[9].Year)

	sum := 0.0
	for _, r := range recs {
		assert.Len(t, r.Monthly, len(Months))
		assert.Positive(t, r.Total)
		assert.Contains(t, []string{"Yes", "No"}, r.Flags["El Nino"])
		sum += r.DeviationFromMean
	}
	assert.InDelta(t, 0.0, sum, 1e-6, "deviations from the mean cancel out")
}
