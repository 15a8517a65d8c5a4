package domain

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// ComputeMetrics derives densities, the drainage risk factor and the
// normalized incident components for every ward. Counts, area and drain
// length must already be set. The input slice is not modified.
func ComputeMetrics(wards []Ward) []Ward {
	out := slices.Clone(wards)

	densities := make([]float64, len(out))
	drainage := make([]float64, len(out))
	logBuffered := make([]float64, len(out))
	for i := range out {
		w := &out[i]
		w.IncidentDensity = safeRatio(float64(w.IncidentCount), w.AreaKm2)
		w.DrainageDensity = safeRatio(w.DrainLengthKm, w.AreaKm2)
		w.LogBufferedIncidents = math.Log1p(float64(w.BufferedIncidentCount))

		densities[i] = w.IncidentDensity
		drainage[i] = w.DrainageDensity
		logBuffered[i] = w.LogBufferedIncidents
	}

	maxDensity := maxOrZero(densities)
	maxDrainage := maxOrZero(drainage)
	maxLogBuffered := maxOrZero(logBuffered)

	for i := range out {
		w := &out[i]
		w.DrainageRiskFactor = DrainageRiskFactor(w.DrainageDensity, maxDrainage)
		w.NormalizedIncidentDensity = safeRatio(w.IncidentDensity, maxDensity)
		w.NormalizedProximity = safeRatio(w.LogBufferedIncidents, maxLogBuffered)
	}
	return out
}

// DrainageRiskFactor is the inverse-normalized drainage density: 0 for the
// best-drained ward, 1 for a ward with no drains. Returns 0 when no ward has drains.
func DrainageRiskFactor(density, maxDensity float64) float64 {
	if maxDensity <= 0 {
		return 0
	}
	return clamp01((maxDensity - density) / maxDensity)
}

// safeRatio divides num by den, returning 0 for a non-positive denominator
// or a non-finite result.
func safeRatio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func maxOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Max(xs)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
