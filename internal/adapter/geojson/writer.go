package geojson

import (
	"maps"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// WardFeature renders a scored ward with its source attributes and every derived field.
func WardFeature(w domain.Ward) *geojson.Feature {
	f := geojson.NewFeature(w.Geometry)
	f.ID = w.Code
	f.Properties = cloneProps(w.Properties)
	f.Properties["name"] = w.Name
	f.Properties["code"] = w.Code
	f.Properties["area_km2"] = w.AreaKm2
	f.Properties["incident_count"] = w.IncidentCount
	f.Properties["buffered_incident_count"] = w.BufferedIncidentCount
	f.Properties["incident_density_sqkm"] = w.IncidentDensity
	f.Properties["drain_length_km"] = w.DrainLengthKm
	f.Properties["drainage_density_km_sqkm"] = w.DrainageDensity
	f.Properties["drainage_risk_factor"] = w.DrainageRiskFactor
	f.Properties["normalized_incident_density"] = w.NormalizedIncidentDensity
	f.Properties["log_buffered_incidents"] = w.LogBufferedIncidents
	f.Properties["normalized_proximity"] = w.NormalizedProximity
	f.Properties["raw_score"] = w.RawScore
	f.Properties["composite_resilience_index"] = w.CompositeIndex
	f.Properties["resilience_level"] = w.ResilienceLevel
	return f
}

// Wards renders the ward table.
func Wards(wards []domain.Ward) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, w := range wards {
		fc.Append(WardFeature(w))
	}
	return fc
}

// Simulation renders a simulated ward table.
func Simulation(sim []domain.SimulatedWard) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range sim {
		f := geojson.NewFeature(s.Geometry)
		f.ID = s.Code
		f.Properties["name"] = s.Name
		f.Properties["code"] = s.Code
		f.Properties["rainfall_multiplier"] = s.Multiplier
		f.Properties["composite_resilience_index"] = s.BaseIndex
		f.Properties["resilience_level"] = s.BaseLevel
		f.Properties["simulated_incident_count"] = s.SimulatedIncidentCount
		f.Properties["simulated_buffered_incident_count"] = s.SimulatedBufferedCount
		f.Properties["simulated_impact_score"] = s.SimulatedImpactScore
		f.Properties["simulated_risk_level"] = s.SimulatedRiskLevel
		fc.Append(f)
	}
	return fc
}

// Grid renders the hotspot cells of one ward.
func Grid(ward domain.Ward, cells []domain.GridCell) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{"ward": ward.Name, "ward_code": ward.Code}
	for _, c := range cells {
		f := geojson.NewFeature(c.Geometry)
		f.Properties["row"] = c.Row
		f.Properties["col"] = c.Col
		f.Properties["incident_count_in_cell"] = c.IncidentCount
		f.Properties["grid_risk_level"] = c.RiskLevel
		fc.Append(f)
	}
	return fc
}

// Incidents renders the merged incident points. Incidents without point
// geometry are written with a null geometry.
func Incidents(incidents []domain.IncidentPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range incidents {
		f := geojson.NewFeature(p.Geometry)
		f.Properties = cloneProps(p.Properties)
		f.Properties["source"] = string(p.Source)
		fc.Append(f)
	}
	return fc
}

// Drains renders the drain network with measured lengths.
func Drains(drains []domain.DrainSegment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, d := range drains {
		f := geojson.NewFeature(d.Geometry)
		f.Properties = cloneProps(d.Properties)
		f.Properties["length_km"] = d.LengthKm
		fc.Append(f)
	}
	return fc
}

func cloneProps(p map[string]any) geojson.Properties {
	out := make(geojson.Properties, len(p)+16)
	maps.Copy(out, p)
	return out
}
