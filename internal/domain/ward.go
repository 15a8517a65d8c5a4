package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// IncidentSource identifies which input layer an incident point came from.
type IncidentSource string

const (
	SourceFloodProne IncidentSource = "flood_prone"
	SourceVulnerable IncidentSource = "vulnerable"
	SourceLowLying   IncidentSource = "low_lying"
)

// IncidentSources lists the incident layers in merge order.
var IncidentSources = []IncidentSource{SourceFloodProne, SourceVulnerable, SourceLowLying}

// ValidIncidentSource reports whether s names a known incident layer.
func ValidIncidentSource(s string) bool {
	for _, src := range IncidentSources {
		if string(src) == s {
			return true
		}
	}
	return false
}

// Ward is an administrative area unit and the primary unit of risk reporting.
// Geometry is WGS-84; every derived field is filled by the aggregation and
// scoring stages.
type Ward struct {
	Name     string           `json:"name"`
	Code     int              `json:"code"`
	Geometry orb.MultiPolygon `json:"-"`

	AreaKm2               float64 `json:"area_km2"`
	IncidentCount         int     `json:"incident_count"`
	BufferedIncidentCount int     `json:"buffered_incident_count"`
	DrainLengthKm         float64 `json:"drain_length_km"`

	IncidentDensity           float64 `json:"incident_density_sqkm"`
	DrainageDensity           float64 `json:"drainage_density_km_sqkm"`
	DrainageRiskFactor        float64 `json:"drainage_risk_factor"`
	NormalizedIncidentDensity float64 `json:"normalized_incident_density"`
	LogBufferedIncidents      float64 `json:"log_buffered_incidents"`
	NormalizedProximity       float64 `json:"normalized_proximity"`

	RawScore        float64 `json:"raw_score"`
	CompositeIndex  float64 `json:"composite_resilience_index"`
	ResilienceLevel string  `json:"resilience_level"`

	// Properties holds the source feature's attributes for pass-through display.
	Properties map[string]any `json:"-"`
}

// IncidentPoint is a historical flood incident location.
type IncidentPoint struct {
	Source   IncidentSource `json:"source"`
	Name     string         `json:"name,omitempty"`
	Location string         `json:"location,omitempty"`
	WardName string         `json:"ward_name,omitempty"`
	WardCode string         `json:"ward_code,omitempty"`

	// Geometry is nil when the source feature was not a point; such incidents
	// are kept for display but excluded from every spatial join.
	Geometry   orb.Geometry   `json:"-"`
	Properties map[string]any `json:"-"`
}

// Point returns the incident location and whether it is a usable point geometry.
func (p IncidentPoint) Point() (orb.Point, bool) {
	pt, ok := p.Geometry.(orb.Point)
	return pt, ok
}

// DrainSegment is a stormwater drain line.
type DrainSegment struct {
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Geometry    orb.MultiLineString `json:"-"`
	LengthKm    float64             `json:"length_km"`
	Properties  map[string]any      `json:"-"`
}

// RainfallRecord is one year of the rainfall series.
type RainfallRecord struct {
	Year              int               `json:"year"`
	Total             float64           `json:"total"`
	Monthly           []MonthlyRainfall `json:"monthly,omitempty"`
	Flags             map[string]string `json:"flags,omitempty"`
	DeviationFromMean float64           `json:"deviation_from_mean"`
}

// MonthlyRainfall is a single month column of a rainfall record.
type MonthlyRainfall struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// GridCell is one tile of a ward's hotspot grid.
type GridCell struct {
	Row           int         `json:"row"`
	Col           int         `json:"col"`
	Geometry      orb.Polygon `json:"-"`
	IncidentCount int         `json:"incident_count_in_cell"`
	RiskLevel     string      `json:"grid_risk_level"`
}

// SimulatedWard is a derived, per-invocation copy of a ward under a rainfall multiplier.
type SimulatedWard struct {
	Name     string           `json:"name"`
	Code     int              `json:"code"`
	Geometry orb.MultiPolygon `json:"-"`

	Multiplier             float64 `json:"rainfall_multiplier"`
	BaseIndex              float64 `json:"composite_resilience_index"`
	BaseLevel              string  `json:"resilience_level"`
	SimulatedIncidentCount float64 `json:"simulated_incident_count"`
	SimulatedBufferedCount float64 `json:"simulated_buffered_incident_count"`
	SimulatedImpactScore   float64 `json:"simulated_impact_score"`
	SimulatedRiskLevel     string  `json:"simulated_risk_level"`
}

// Dataset is the normalized input of one pipeline run.
type Dataset struct {
	Wards     []Ward
	Incidents []IncidentPoint
	Drains    []DrainSegment
	Rainfall  []RainfallRecord

	// Fingerprint identifies the geometry layer files; it changes whenever one is replaced.
	Fingerprint string
}

// Snapshot is the read-only result of one pipeline run.
type Snapshot struct {
	Wards           []Ward
	Incidents       []IncidentPoint
	Drains          []DrainSegment
	Rainfall        []RainfallRecord
	RainfallSummary RainfallSummary
	Fingerprint     string
	ComputedAt      time.Time
}

// WardByCode returns the ward with the given code.
func (s *Snapshot) WardByCode(code int) (Ward, bool) {
	for _, w := range s.Wards {
		if w.Code == code {
			return w, true
		}
	}
	return Ward{}, false
}

// WardByName returns the ward with the given name.
func (s *Snapshot) WardByName(name string) (Ward, bool) {
	for _, w := range s.Wards {
		if w.Name == name {
			return w, true
		}
	}
	return Ward{}, false
}

// IncidentsBySource returns incidents from the given layer. An empty source returns all.
func (s *Snapshot) IncidentsBySource(source IncidentSource) []IncidentPoint {
	if source == "" {
		return s.Incidents
	}
	out := make([]IncidentPoint, 0, len(s.Incidents))
	for _, p := range s.Incidents {
		if p.Source == source {
			out = append(out, p)
		}
	}
	return out
}
