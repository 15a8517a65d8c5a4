package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatTol = 1e-9

func TestComputeMetrics_Densities(t *testing.T) {
	wards := []Ward{
		{Name: "A", AreaKm2: 2, IncidentCount: 4, DrainLengthKm: 3},
		{Name: "B", AreaKm2: 0, IncidentCount: 5, DrainLengthKm: 1},
		{Name: "C", AreaKm2: 0.5, IncidentCount: 0, DrainLengthKm: 0},
	}

	got := ComputeMetrics(wards)
	require.Len(t, got, 3)

	assert.InDelta(t, 2.0, got[0].IncidentDensity, floatTol)
	assert.InDelta(t, 1.5, got[0].DrainageDensity, floatTol)

	// Zero area yields zero density rather than Inf/NaN.
	assert.Zero(t, got[1].IncidentDensity)
	assert.Zero(t, got[1].DrainageDensity)

	assert.Zero(t, got[2].IncidentDensity)
	assert.Zero(t, got[2].DrainageDensity)

	// Input is untouched.
	assert.Zero(t, wards[0].IncidentDensity)
}

func TestComputeMetrics_DensityMatchesCountOverArea(t *testing.T) {
	wards := []Ward{
		{AreaKm2: 3.7, IncidentCount: 11},
		{AreaKm2: 0.25, IncidentCount: 1},
		{AreaKm2: 0, IncidentCount: 9},
		{AreaKm2: 12.1, IncidentCount: 0},
	}
	for _, w := range ComputeMetrics(wards) {
		if w.AreaKm2 > 0 {
			assert.InDelta(t, float64(w.IncidentCount)/w.AreaKm2, w.IncidentDensity, floatTol)
		} else {
			assert.Zero(t, w.IncidentDensity)
		}
	}
}

func TestComputeMetrics_DrainageRiskFactorBounded(t *testing.T) {
	wards := []Ward{
		{AreaKm2: 1, DrainLengthKm: 4},
		{AreaKm2: 2, DrainLengthKm: 1},
		{AreaKm2: 3, DrainLengthKm: 0},
		{AreaKm2: 0, DrainLengthKm: 10},
	}
	got := ComputeMetrics(wards)
	for _, w := range got {
		assert.GreaterOrEqual(t, w.DrainageRiskFactor, 0.0)
		assert.LessOrEqual(t, w.DrainageRiskFactor, 1.0)
	}
	assert.Zero(t, got[0].DrainageRiskFactor, "best-drained ward carries no drainage risk")
	assert.InDelta(t, 0.875, got[1].DrainageRiskFactor, floatTol)
	assert.InDelta(t, 1.0, got[2].DrainageRiskFactor, floatTol)
}

func TestComputeMetrics_LogDampenedProximity(t *testing.T) {
	wards := []Ward{
		{AreaKm2: 1, BufferedIncidentCount: 99},
		{AreaKm2: 1, BufferedIncidentCount: 9},
		{AreaKm2: 1, BufferedIncidentCount: 0},
	}
	got := ComputeMetrics(wards)

	assert.InDelta(t, math.Log(100), got[0].LogBufferedIncidents, floatTol)
	assert.InDelta(t, 1.0, got[0].NormalizedProximity, floatTol)
	assert.InDelta(t, 0.5, got[1].NormalizedProximity, floatTol, "log(10)/log(100)")
	assert.Zero(t, got[2].NormalizedProximity)
}

func TestScoreWards_SoleWardPinnedTo100(t *testing.T) {
	wards := []Ward{{Name: "Only", AreaKm2: 1, IncidentCount: 3, BufferedIncidentCount: 3, DrainLengthKm: 2}}

	got := ScoreWards(wards)
	require.Len(t, got, 1)
	w := got[0]

	assert.InDelta(t, 3.0, w.IncidentDensity, floatTol)
	assert.InDelta(t, 2.0, w.DrainLengthKm, floatTol)
	assert.InDelta(t, 2.0, w.DrainageDensity, floatTol)
	assert.Zero(t, w.DrainageRiskFactor)
	assert.InDelta(t, 1.0, w.NormalizedIncidentDensity, floatTol)
	assert.InDelta(t, 1.0, w.NormalizedProximity, floatTol)
	assert.InDelta(t, 0.4*1+0.2*1+0.4*0, w.RawScore, floatTol)
	assert.Equal(t, 100.0, w.CompositeIndex)
	assert.Equal(t, LevelExtremeVulnerability, w.ResilienceLevel)
}

func TestScoreWards_NoIncidentsDrivenByDrainage(t *testing.T) {
	wards := []Ward{
		{Name: "well-drained", AreaKm2: 1, DrainLengthKm: 2},
		{Name: "half-drained", AreaKm2: 1, DrainLengthKm: 1},
		{Name: "undrained", AreaKm2: 2, DrainLengthKm: 0},
	}

	got := ScoreWards(wards)

	for _, w := range got {
		assert.Zero(t, w.IncidentCount)
		assert.Zero(t, w.BufferedIncidentCount)
		assert.Zero(t, w.NormalizedIncidentDensity)
		assert.Zero(t, w.NormalizedProximity)
	}

	assert.Zero(t, got[0].DrainageRiskFactor)
	assert.Zero(t, got[0].CompositeIndex)
	assert.Equal(t, LevelHighResilience, got[0].ResilienceLevel)

	assert.InDelta(t, 50.0, got[1].CompositeIndex, floatTol)
	assert.Equal(t, LevelModerateVulnerability, got[1].ResilienceLevel)

	assert.Equal(t, 100.0, got[2].CompositeIndex)
	assert.Equal(t, LevelExtremeVulnerability, got[2].ResilienceLevel)
}

func TestScoreWards_AllZeroRaw(t *testing.T) {
	wards := []Ward{
		{Name: "A", AreaKm2: 1},
		{Name: "B", AreaKm2: 0},
	}
	for _, w := range ScoreWards(wards) {
		assert.Zero(t, w.CompositeIndex)
		assert.Equal(t, LevelHighResilience, w.ResilienceLevel)
		assert.False(t, math.IsNaN(w.RawScore))
	}
}

func TestScoreWards_MaxIndexIs100(t *testing.T) {
	wards := []Ward{
		{Name: "A", AreaKm2: 1.3, IncidentCount: 7, BufferedIncidentCount: 12, DrainLengthKm: 0.4},
		{Name: "B", AreaKm2: 4.1, IncidentCount: 2, BufferedIncidentCount: 5, DrainLengthKm: 6.2},
		{Name: "C", AreaKm2: 0.9, IncidentCount: 0, BufferedIncidentCount: 1, DrainLengthKm: 2.2},
	}
	got := ScoreWards(wards)

	maxIndex := 0.0
	for _, w := range got {
		maxIndex = max(maxIndex, w.CompositeIndex)
		assert.GreaterOrEqual(t, w.CompositeIndex, 0.0)
		assert.LessOrEqual(t, w.CompositeIndex, 100.0)
	}
	assert.Equal(t, 100.0, maxIndex)
}

func TestScoreWards_Empty(t *testing.T) {
	assert.Empty(t, ScoreWards(nil))
	assert.Equal(t, Scale{}, ScaleOf(nil))
}

func TestResilienceLevel_Boundaries(t *testing.T) {
	tests := []struct {
		index    float64
		expected string
	}{
		{100, LevelExtremeVulnerability},
		{85.0, LevelExtremeVulnerability},
		{84.999, LevelHighVulnerability},
		{60, LevelHighVulnerability},
		{59.999, LevelModerateVulnerability},
		{35, LevelModerateVulnerability},
		{34.999, LevelLowVulnerability},
		{10, LevelLowVulnerability},
		{9.999, LevelHighResilience},
		{0, LevelHighResilience},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ResilienceLevel(tt.index), "index %v", tt.index)
	}
}

func TestResilienceLevel_TotalPartition(t *testing.T) {
	known := make(map[string]bool)
	for _, l := range ResilienceLevels() {
		known[l] = true
	}
	for i := 0; i <= 10000; i++ {
		level := ResilienceLevel(float64(i) / 100)
		assert.True(t, known[level], "index %v has label %q", float64(i)/100, level)
	}
}

func TestGridRiskLevel(t *testing.T) {
	tests := []struct {
		count    int
		expected string
	}{
		{0, GridNoIncidents},
		{1, GridMinorRisk},
		{2, GridLowRisk},
		{3, GridLowRisk},
		{4, GridModerateRisk},
		{6, GridModerateRisk},
		{7, GridHighRisk},
		{10, GridHighRisk},
		{11, GridCriticalRisk},
		{250, GridCriticalRisk},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GridRiskLevel(tt.count), "count %d", tt.count)
	}
}
