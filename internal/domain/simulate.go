package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMultiplier is returned for a rainfall multiplier outside the accepted range.
var ErrInvalidMultiplier = errors.New("invalid rainfall multiplier")

// ValidateMultiplier checks that m is finite and within [lo, hi].
func ValidateMultiplier(m, lo, hi float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidMultiplier, m)
	}
	if m < lo || m > hi {
		return fmt.Errorf("%w: %v outside [%v, %v]", ErrInvalidMultiplier, m, lo, hi)
	}
	return nil
}

// Simulate projects every ward under a rainfall multiplier. Direct and
// buffered incident counts are both scaled by the multiplier and scored with
// the base weights, normalized against the base set's maxima so that a
// multiplier of 1 reproduces each ward's composite index. The scored wards
// are not modified; a fresh slice is returned on every call.
func Simulate(wards []Ward, multiplier float64) ([]SimulatedWard, error) {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMultiplier, multiplier)
	}

	scale := ScaleOf(wards)
	out := make([]SimulatedWard, len(wards))
	for i, w := range wards {
		count := float64(w.IncidentCount) * multiplier
		buffered := float64(w.BufferedIncidentCount) * multiplier

		density := safeRatio(count, w.AreaKm2)
		raw := rawScore(
			safeRatio(density, scale.MaxIncidentDensity),
			safeRatio(math.Log1p(buffered), scale.MaxLogBuffered),
			w.DrainageRiskFactor,
		)
		score := 100 * safeRatio(raw, scale.MaxRawScore)

		out[i] = SimulatedWard{
			Name:                   w.Name,
			Code:                   w.Code,
			Geometry:               w.Geometry,
			Multiplier:             multiplier,
			BaseIndex:              w.CompositeIndex,
			BaseLevel:              w.ResilienceLevel,
			SimulatedIncidentCount: count,
			SimulatedBufferedCount: buffered,
			SimulatedImpactScore:   score,
			SimulatedRiskLevel:     SimulatedRiskLevel(score),
		}
	}
	return out, nil
}
