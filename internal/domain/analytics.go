package domain

import (
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// LevelCount is the number of wards in one resilience level.
type LevelCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// HistogramBin is one bin of the composite-index distribution.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// NamedCount pairs a label with a count.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// WardComparison holds the metrics shown side by side when comparing wards.
type WardComparison struct {
	Name                string  `json:"name"`
	Code                int     `json:"code"`
	IncidentDensity     float64 `json:"incident_density_sqkm"`
	DrainageDensity     float64 `json:"drainage_density_km_sqkm"`
	CompositeIndex      float64 `json:"composite_resilience_index"`
	NormalizedProximity float64 `json:"normalized_proximity"`
}

// Summary aggregates the dashboard analytics for one snapshot.
type Summary struct {
	Wards             int             `json:"wards"`
	Incidents         int             `json:"incidents"`
	Drains            int             `json:"drains"`
	Levels            []LevelCount    `json:"levels"`
	IndexHistogram    []HistogramBin  `json:"index_histogram"`
	IncidentsBySource []NamedCount    `json:"incidents_by_source"`
	IncidentsByWard   []NamedCount    `json:"incidents_by_ward"`
	MostVulnerable    []Ward          `json:"most_vulnerable"`
	Scale             Scale           `json:"scale"`
	Rainfall          RainfallSummary `json:"rainfall"`
}

// Summarize builds the analytics summary, listing up to topN most vulnerable wards.
func Summarize(s *Snapshot, topN int) Summary {
	return Summary{
		Wards:             len(s.Wards),
		Incidents:         len(s.Incidents),
		Drains:            len(s.Drains),
		Levels:            LevelDistribution(s.Wards),
		IndexHistogram:    IndexHistogram(s.Wards, 10),
		IncidentsBySource: IncidentCountsBySource(s.Incidents),
		IncidentsByWard:   IncidentCountsByWard(s.Incidents),
		MostVulnerable:    MostVulnerable(s.Wards, topN),
		Scale:             ScaleOf(s.Wards),
		Rainfall:          s.RainfallSummary,
	}
}

// LevelDistribution counts wards per resilience level, in level order.
func LevelDistribution(wards []Ward) []LevelCount {
	counts := make(map[string]int, len(resilienceBands))
	for _, w := range wards {
		counts[w.ResilienceLevel]++
	}
	out := make([]LevelCount, 0, len(resilienceBands))
	for _, level := range ResilienceLevels() {
		out = append(out, LevelCount{Level: level, Count: counts[level]})
	}
	return out
}

// IndexHistogram bins composite indices into equal-width bins over [0, 100].
// The last bin is closed so an index of exactly 100 is counted.
func IndexHistogram(wards []Ward, binWidth float64) []HistogramBin {
	if binWidth <= 0 || binWidth > 100 {
		binWidth = 10
	}
	nBins := int(math.Ceil(100 / binWidth))
	dividers := make([]float64, nBins+1)
	for i := range nBins {
		dividers[i] = float64(i) * binWidth
	}
	dividers[nBins] = math.Nextafter(100, math.Inf(1))

	xs := make([]float64, 0, len(wards))
	for _, w := range wards {
		xs = append(xs, min(max(w.CompositeIndex, 0), 100))
	}
	slices.Sort(xs)

	counts := make([]float64, nBins)
	if len(xs) > 0 {
		counts = stat.Histogram(nil, dividers, xs, nil)
	}

	out := make([]HistogramBin, nBins)
	for i := range nBins {
		out[i] = HistogramBin{
			Lower: dividers[i],
			Upper: min(float64(i+1)*binWidth, 100),
			Count: int(counts[i]),
		}
	}
	return out
}

// IncidentCountsBySource counts incidents per input layer.
func IncidentCountsBySource(incidents []IncidentPoint) []NamedCount {
	counts := make(map[IncidentSource]int, len(IncidentSources))
	for _, p := range incidents {
		counts[p.Source]++
	}
	out := make([]NamedCount, 0, len(IncidentSources))
	for _, src := range IncidentSources {
		out = append(out, NamedCount{Name: string(src), Count: counts[src]})
	}
	return out
}

// IncidentCountsByWard counts incidents by the ward name recorded on the
// incident itself, highest first. Incidents without a ward name are skipped.
func IncidentCountsByWard(incidents []IncidentPoint) []NamedCount {
	counts := make(map[string]int)
	for _, p := range incidents {
		name := strings.TrimSpace(p.WardName)
		if name == "" {
			continue
		}
		counts[name]++
	}
	out := make([]NamedCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NamedCount{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b NamedCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// MostVulnerable returns up to n wards ordered by composite index, highest first.
func MostVulnerable(wards []Ward, n int) []Ward {
	sorted := slices.Clone(wards)
	slices.SortStableFunc(sorted, func(a, b Ward) int {
		switch {
		case a.CompositeIndex > b.CompositeIndex:
			return -1
		case a.CompositeIndex < b.CompositeIndex:
			return 1
		default:
			return strings.Compare(a.Name, b.Name)
		}
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Compare returns comparison metrics for the named wards, in request order.
// Unknown names are skipped.
func Compare(wards []Ward, names []string) []WardComparison {
	byName := make(map[string]Ward, len(wards))
	for _, w := range wards {
		byName[w.Name] = w
	}
	out := make([]WardComparison, 0, len(names))
	for _, name := range names {
		w, ok := byName[name]
		if !ok {
			continue
		}
		out = append(out, WardComparison{
			Name:                w.Name,
			Code:                w.Code,
			IncidentDensity:     w.IncidentDensity,
			DrainageDensity:     w.DrainageDensity,
			CompositeIndex:      w.CompositeIndex,
			NormalizedProximity: w.NormalizedProximity,
		})
	}
	return out
}
