// Package domain models ward-level flood vulnerability derived from historical
// incident points, stormwater drains and ward boundaries.
//
// # Data Sources
//
// Ward polygons, drain lines and three incident point layers (flood-prone,
// vulnerable and low-lying locations) arrive as GeoJSON. A yearly rainfall
// series arrives as CSV. Adapters normalize geometry to WGS-84 lon/lat before
// anything in this package sees it; all metric measurement (area, length,
// buffering) happens in a projected frame owned by the spatial package.
//
// # Metric Conventions
//
// Densities are per square kilometre:
//
//	incident_density = incident_count / area_km2
//	drainage_density = drain_length_km / area_km2
//
// A ward with zero area has zero density. Every ratio in this package returns
// 0 for a zero denominator, so NaN and Inf never reach the index.
//
// Normalization is relative to the observed maximum of the current ward set,
// so scores describe a snapshot, not an absolute scale:
//
//	normalized_incident_density = density / max(density)
//	normalized_proximity        = ln(1+buffered) / max(ln(1+buffered))
//	drainage_risk_factor        = (max(drainage) - drainage) / max(drainage)
//
// # Composite Index
//
//	raw   = 0.4*normalized_incident_density + 0.2*normalized_proximity + 0.4*drainage_risk_factor
//	index = 100 * raw / max(raw)
//
// The ward with the highest raw score is pinned to exactly 100. Bands:
//
//	≥85 Extreme Vulnerability | ≥60 High | ≥35 Moderate | ≥10 Low | <10 High Resilience
//
// # What-If Simulation
//
// Direct and buffered incident counts are scaled linearly by a rainfall
// multiplier and pushed through the same weighting, normalized against the
// base snapshot's maxima. A multiplier of 1 reproduces the base index.
// Simulated scores can exceed 100 and use their own bands (see
// [SimulatedRiskLevel]).
//
// # Rainfall
//
// Rainfall is descriptive: it is summarized for charts and never feeds the
// composite index.
package domain
