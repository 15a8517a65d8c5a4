package domain

// Composite index weights. Drainage is weighted through the inverse risk
// factor, so sparse drainage raises the score.
const (
	WeightIncidentDensity = 0.4
	WeightProximity       = 0.2
	WeightDrainageRisk    = 0.4
)

// Scale holds the maxima a scored ward set was normalized against.
type Scale struct {
	MaxIncidentDensity float64 `json:"max_incident_density"`
	MaxLogBuffered     float64 `json:"max_log_buffered_incidents"`
	MaxRawScore        float64 `json:"max_raw_score"`
}

// ScoreWards runs the metric calculator and the composite scorer over the
// ward set and returns a scored copy. The ward with the highest raw score
// gets index 100; every index is 0 when all raw scores are 0.
func ScoreWards(wards []Ward) []Ward {
	out := ComputeMetrics(wards)

	raws := make([]float64, len(out))
	for i := range out {
		out[i].RawScore = rawScore(out[i].NormalizedIncidentDensity, out[i].NormalizedProximity, out[i].DrainageRiskFactor)
		raws[i] = out[i].RawScore
	}

	maxRaw := maxOrZero(raws)
	for i := range out {
		out[i].CompositeIndex = 100 * safeRatio(out[i].RawScore, maxRaw)
		out[i].ResilienceLevel = ResilienceLevel(out[i].CompositeIndex)
	}
	return out
}

// ScaleOf returns the normalization maxima of a scored ward set.
func ScaleOf(wards []Ward) Scale {
	densities := make([]float64, len(wards))
	logBuffered := make([]float64, len(wards))
	raws := make([]float64, len(wards))
	for i, w := range wards {
		densities[i] = w.IncidentDensity
		logBuffered[i] = w.LogBufferedIncidents
		raws[i] = w.RawScore
	}
	return Scale{
		MaxIncidentDensity: maxOrZero(densities),
		MaxLogBuffered:     maxOrZero(logBuffered),
		MaxRawScore:        maxOrZero(raws),
	}
}

func rawScore(normalizedDensity, normalizedProximity, drainageRisk float64) float64 {
	return WeightIncidentDensity*normalizedDensity +
		WeightProximity*normalizedProximity +
		WeightDrainageRisk*drainageRisk
}
