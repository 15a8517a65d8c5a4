package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the scoring pipeline.
type Metrics struct {
	PipelineBuilds        *prometheus.CounterVec // labels: outcome={success,error}
	PipelineBuildDuration prometheus.Histogram
	WardsScored           prometheus.Gauge
	IncidentsSkipped      prometheus.Gauge
	SnapshotTimestamp     prometheus.Gauge

	// On-demand artifacts.
	ArtifactRequests *prometheus.CounterVec   // labels: kind={grid,simulation}, outcome={success,empty,invalid,error}
	ArtifactCache    *prometheus.CounterVec   // labels: kind={grid,simulation}, result={hit,miss,shared_hit}
	ArtifactDuration *prometheus.HistogramVec // labels: kind={grid,simulation}

	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PipelineBuilds,
		m.PipelineBuildDuration,
		m.WardsScored,
		m.IncidentsSkipped,
		m.SnapshotTimestamp,
		m.ArtifactRequests,
		m.ArtifactCache,
		m.ArtifactDuration,
		m.SnapshotsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_builds_total",
			Help:      "Pipeline builds by outcome.",
		}, []string{"outcome"}),
		PipelineBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_build_duration_seconds",
			Help:      "Duration of a complete load-aggregate-score run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		WardsScored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wards_scored",
			Help:      "Number of wards in the current snapshot.",
		}),
		IncidentsSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "incidents_skipped",
			Help:      "Incidents in the current snapshot excluded from spatial joins for lacking point geometry or lying outside the projection frame.",
		}),
		SnapshotTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_timestamp_seconds",
			Help:      "Unix time at which the current snapshot was computed.",
		}),
		ArtifactRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_requests_total",
			Help:      "Grid and simulation requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ArtifactCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_cache_total",
			Help:      "Artifact cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		ArtifactDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_duration_seconds",
			Help:      "Time to compute a grid or simulation on a cache miss.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Ward snapshots written to the snapshot topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publications.",
		}),
	}
}
