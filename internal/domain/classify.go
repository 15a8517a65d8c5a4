package domain

// Resilience levels for the composite index.
const (
	LevelExtremeVulnerability  = "Extreme Vulnerability"
	LevelHighVulnerability     = "High Vulnerability"
	LevelModerateVulnerability = "Moderate Vulnerability"
	LevelLowVulnerability      = "Low Vulnerability"
	LevelHighResilience        = "High Resilience"
)

// Grid hotspot risk levels.
const (
	GridNoIncidents  = "No Incidents"
	GridMinorRisk    = "Minor Risk"
	GridLowRisk      = "Low Risk"
	GridModerateRisk = "Moderate Risk"
	GridHighRisk     = "High Risk"
	GridCriticalRisk = "Critical Risk"
)

// Simulated flood impact levels.
const (
	ImpactCatastrophic = "Catastrophic"
	ImpactSevere       = "Severe Flooding"
	ImpactSignificant  = "Significant Flooding"
	ImpactMinor        = "Minor Flooding"
	ImpactLow          = "Low Impact"
)

// band is a lower-inclusive threshold. Tables are ordered from the highest
// threshold down; the last entry catches everything below.
type band struct {
	min   float64
	label string
}

var resilienceBands = []band{
	{85, LevelExtremeVulnerability},
	{60, LevelHighVulnerability},
	{35, LevelModerateVulnerability},
	{10, LevelLowVulnerability},
	{0, LevelHighResilience},
}

var impactBands = []band{
	{150, ImpactCatastrophic},
	{100, ImpactSevere},
	{60, ImpactSignificant},
	{30, ImpactMinor},
	{0, ImpactLow},
}

// ResilienceLevels lists the composite-index levels from most to least vulnerable.
func ResilienceLevels() []string {
	return labels(resilienceBands)
}

// ImpactLevels lists the simulated impact levels from most to least severe.
func ImpactLevels() []string {
	return labels(impactBands)
}

// ResilienceLevel classifies a 0–100 composite index.
func ResilienceLevel(index float64) string {
	return classify(index, resilienceBands)
}

// SimulatedRiskLevel classifies a simulated impact score. Simulated scores share
// the base index scale but can exceed 100 when the multiplier is above 1.
func SimulatedRiskLevel(score float64) string {
	return classify(score, impactBands)
}

// GridRiskLevel classifies the incident count of one grid cell.
func GridRiskLevel(count int) string {
	switch {
	case count <= 0:
		return GridNoIncidents
	case count == 1:
		return GridMinorRisk
	case count <= 3:
		return GridLowRisk
	case count <= 6:
		return GridModerateRisk
	case count <= 10:
		return GridHighRisk
	default:
		return GridCriticalRisk
	}
}

func classify(v float64, bands []band) string {
	for _, b := range bands {
		if v >= b.min {
			return b.label
		}
	}
	return bands[len(bands)-1].label
}

func labels(bands []band) []string {
	out := make([]string, len(bands))
	for i, b := range bands {
		out[i] = b.label
	}
	return out
}
