package domain

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// RainfallSummary describes the rainfall series for charts.
type RainfallSummary struct {
	Years       int     `json:"years"`
	FirstYear   int     `json:"first_year"`
	LastYear    int     `json:"last_year"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	WettestYear int     `json:"wettest_year"`
	WettestMM   float64 `json:"wettest_mm"`
	DriestYear  int     `json:"driest_year"`
	DriestMM    float64 `json:"driest_mm"`
	AboveMean   int     `json:"years_above_mean"`
}

// EnrichRainfall sorts the series by year and sets each record's deviation
// from the all-years mean. The input slice is not modified.
func EnrichRainfall(records []RainfallRecord) []RainfallRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b RainfallRecord) int { return a.Year - b.Year })
	if len(out) == 0 {
		return out
	}

	mean := stat.Mean(totals(out), nil)
	for i := range out {
		out[i].DeviationFromMean = out[i].Total - mean
	}
	return out
}

// SummarizeRainfall computes descriptive statistics over an enriched series.
func SummarizeRainfall(records []RainfallRecord) RainfallSummary {
	if len(records) == 0 {
		return RainfallSummary{}
	}

	mean, std := stat.MeanStdDev(totals(records), nil)
	if len(records) < 2 {
		// The sample deviation of a single year is undefined.
		std = 0
	}
	s := RainfallSummary{
		Years:     len(records),
		FirstYear: records[0].Year,
		LastYear:  records[0].Year,
		Mean:      mean,
		StdDev:    std,
	}
	wettest, driest := records[0], records[0]
	for _, r := range records {
		s.FirstYear = min(s.FirstYear, r.Year)
		s.LastYear = max(s.LastYear, r.Year)
		if r.Total > wettest.Total {
			wettest = r
		}
		if r.Total < driest.Total {
			driest = r
		}
		if r.Total > mean {
			s.AboveMean++
		}
	}
	s.WettestYear, s.WettestMM = wettest.Year, wettest.Total
	s.DriestYear, s.DriestMM = driest.Year, driest.Total
	return s
}

func totals(records []RainfallRecord) []float64 {
	xs := make([]float64, len(records))
	for i, r := range records {
		xs[i] = r.Total
	}
	return xs
}
