package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

const scoreTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validate(snap *domain.Snapshot, minMultiplier, maxMultiplier float64) []*phase {
	return []*phase{
		validateLayers(snap),
		validateAttribution(snap),
		validateScores(snap),
		validateRainfall(snap.Rainfall),
		validateSimulation(snap.Wards, minMultiplier, maxMultiplier),
	}
}

// ── Phase 1: Layer Integrity ──

func validateLayers(snap *domain.Snapshot) *phase {
	p := &phase{name: "Phase 1: Layer Integrity"}

	for _, w := range snap.Wards {
		if w.Name == "" {
			p.errorf("ward %d: empty name", w.Code)
		}
		if w.AreaKm2 <= 0 {
			p.errorf("ward %d (%s): non-positive area %.6f km2", w.Code, w.Name, w.AreaKm2)
		}
	}
	for i, inc := range snap.Incidents {
		if !domain.ValidIncidentSource(string(inc.Source)) {
			p.errorf("incident %d: unknown source %q", i, inc.Source)
		}
	}
	for i, d := range snap.Drains {
		if d.LengthKm <= 0 {
			p.errorf("drain %d (%s): zero length", i, d.Name)
		}
	}
	return p
}

// ── Phase 2: Incident Attribution ──
// Incidents that record a ward number must fall inside that ward.

func validateAttribution(snap *domain.Snapshot) *phase {
	p := &phase{name: "Phase 2: Incident Attribution"}

	for i, inc := range snap.Incidents {
		pt, ok := inc.Point()
		if !ok || inc.WardCode == "" {
			continue
		}
		code, err := strconv.Atoi(inc.WardCode)
		if err != nil {
			p.errorf("incident %d (%s): ward number %q is not numeric", i, inc.Name, inc.WardCode)
			continue
		}
		w, ok := snap.WardByCode(code)
		if !ok {
			p.errorf("incident %d (%s): ward %d not in ward layer", i, inc.Name, code)
			continue
		}
		if !spatial.ContainsStrict(w.Geometry, pt) {
			p.errorf("incident %d (%s): recorded in ward %d but lies outside it", i, inc.Name, code)
		}
	}
	return p
}

// ── Phase 3: Score Invariants ──

func validateScores(snap *domain.Snapshot) *phase {
	p := &phase{name: "Phase 3: Score Invariants"}

	points := 0
	for _, inc := range snap.Incidents {
		if _, ok := inc.Point(); ok {
			points++
		}
	}

	total, maxIndex, maxRaw := 0, 0.0, 0.0
	for _, w := range snap.Wards {
		total += w.IncidentCount
		maxIndex = math.Max(maxIndex, w.CompositeIndex)
		maxRaw = math.Max(maxRaw, w.RawScore)

		if w.CompositeIndex < 0 || w.CompositeIndex > 100+scoreTolerance || math.IsNaN(w.CompositeIndex) {
			p.errorf("ward %d: composite index %.4f outside [0, 100]", w.Code, w.CompositeIndex)
		}
		if want := domain.ResilienceLevel(w.CompositeIndex); w.ResilienceLevel != want {
			p.errorf("ward %d: level %q, want %q for index %.4f", w.Code, w.ResilienceLevel, want, w.CompositeIndex)
		}
		if w.DrainageRiskFactor < 0 || w.DrainageRiskFactor > 1 {
			p.errorf("ward %d: drainage risk factor %.4f outside [0, 1]", w.Code, w.DrainageRiskFactor)
		}
		if w.BufferedIncidentCount < w.IncidentCount {
			p.errorf("ward %d: buffered count %d below direct count %d", w.Code, w.BufferedIncidentCount, w.IncidentCount)
		}
	}

	if total > points {
		p.errorf("direct incident counts sum to %d but only %d incidents have point geometry", total, points)
	}
	if maxRaw > 0 && math.Abs(maxIndex-100) > scoreTolerance {
		p.errorf("highest composite index is %.4f, want 100", maxIndex)
	}
	return p
}

// ── Phase 4: Rainfall Series ──

func validateRainfall(records []domain.RainfallRecord) *phase {
	p := &phase{name: "Phase 4: Rainfall Series"}

	prev := math.MinInt
	for _, r := range records {
		if r.Year <= 0 {
			p.errorf("record with total %.1f has no year", r.Total)
			continue
		}
		if r.Year <= prev {
			p.errorf("year %d out of order or duplicated", r.Year)
		}
		prev = r.Year

		// Partial years legitimately disagree with their total.
		if len(r.Monthly) != 12 {
			continue
		}
		sum := 0.0
		for _, m := range r.Monthly {
			sum += m.Value
		}
		if math.Abs(sum-r.Total) > 1+0.005*r.Total {
			p.errorf("year %d: months sum to %.1f but total is %.1f", r.Year, sum, r.Total)
		}
	}
	return p
}

// ── Phase 5: Simulation Consistency ──

func validateSimulation(wards []domain.Ward, minMultiplier, maxMultiplier float64) *phase {
	p := &phase{name: "Phase 5: Simulation Consistency"}

	base, err := domain.Simulate(wards, 1)
	if err != nil {
		p.errorf("simulate x1: %v", err)
		return p
	}
	for _, s := range base {
		if math.Abs(s.SimulatedImpactScore-s.BaseIndex) > scoreTolerance {
			p.errorf("ward %d: x1 impact %.4f differs from index %.4f", s.Code, s.SimulatedImpactScore, s.BaseIndex)
		}
	}

	low, err := domain.Simulate(wards, minMultiplier)
	if err != nil {
		p.errorf("simulate x%g: %v", minMultiplier, err)
		return p
	}
	high, err := domain.Simulate(wards, maxMultiplier)
	if err != nil {
		p.errorf("simulate x%g: %v", maxMultiplier, err)
		return p
	}
	for i := range low {
		if high[i].SimulatedImpactScore+scoreTolerance < low[i].SimulatedImpactScore {
			p.errorf("ward %d: impact falls from %.4f to %.4f as rainfall rises", low[i].Code,
				low[i].SimulatedImpactScore, high[i].SimulatedImpactScore)
		}
	}
	return p
}
