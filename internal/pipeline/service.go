// Package pipeline owns the scored snapshot: it loads the input layers, runs
// aggregation and scoring, and memoizes the snapshot and the on-demand grid
// and simulation artifacts derived from it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

var (
	// ErrWardNotFound is returned when a ward code is not in the snapshot.
	ErrWardNotFound = errors.New("ward not found")

	// ErrNoWards is returned when the ward layer has no features.
	ErrNoWards = errors.New("no wards loaded")
)

const (
	kindGrid       = "grid"
	kindSimulation = "simulation"
)

// LayerLoader reads the normalized geometry layers.
type LayerLoader interface {
	LoadLayers(ctx context.Context) (domain.Dataset, error)
}

// RainfallLoader reads the rainfall series.
type RainfallLoader interface {
	LoadRainfall(ctx context.Context) ([]domain.RainfallRecord, error)
}

// ArtifactStore is a cache for encoded artifacts shared between replicas.
type ArtifactStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// SnapshotPublisher announces a freshly built snapshot.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// Options tunes the service. Zero values take the documented defaults.
type Options struct {
	CacheTTL        time.Duration // default 1h
	CacheSize       int           // default 256 artifacts
	BufferDistance  float64       // meters, default 500
	GridMinSize     float64       // meters, default 100
	GridMaxSize     float64       // meters, default 500
	GridDefaultSize float64       // meters, default 250
	MinMultiplier   float64       // default 0.5
	MaxMultiplier   float64       // default 5.0
	PublishTimeout  time.Duration // default 30s

	Store     ArtifactStore     // optional
	Publisher SnapshotPublisher // optional
	Clock     clockwork.Clock
}

// OptionsFromConfig maps the environment configuration onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CacheTTL:        cfg.CacheTTL,
		CacheSize:       cfg.ArtifactCacheSize,
		BufferDistance:  cfg.BufferDistanceM,
		GridMinSize:     cfg.GridMinSizeM,
		GridMaxSize:     cfg.GridMaxSizeM,
		GridDefaultSize: cfg.GridDefaultSizeM,
		MinMultiplier:   cfg.SimMinMultiplier,
		MaxMultiplier:   cfg.SimMaxMultiplier,
	}
}

func (o *Options) applyDefaults() {
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 256
	}
	if o.BufferDistance <= 0 {
		o.BufferDistance = spatial.DefaultBufferDistance
	}
	if o.GridMinSize <= 0 {
		o.GridMinSize = 100
	}
	if o.GridMaxSize <= 0 {
		o.GridMaxSize = 500
	}
	if o.GridDefaultSize <= 0 {
		o.GridDefaultSize = 250
	}
	if o.MinMultiplier <= 0 {
		o.MinMultiplier = 0.5
	}
	if o.MaxMultiplier <= 0 {
		o.MaxMultiplier = 5.0
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
}

// state is one built snapshot together with the frame it was measured in.
type state struct {
	snap          *domain.Snapshot
	proj          *spatial.Projector
	points        []orb.Point
	skipped       int
	outOfFrame    int
	drainsOutside int
	builtAt       time.Time
}

// Service builds and serves scored snapshots.
type Service struct {
	layers   LayerLoader
	rainfall RainfallLoader
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics

	buildMu sync.Mutex
	cur     atomic.Pointer[state]
	grids   *lruCache[[]domain.GridCell]
	sims    *lruCache[[]domain.SimulatedWard]

	// Publishing runs off the request path, one snapshot at a time.
	publishMu  sync.Mutex
	publishing sync.WaitGroup
}

// New creates a Service. The rainfall loader may be nil.
func New(layers LayerLoader, rainfall RainfallLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	opts.applyDefaults()
	return &Service{
		layers:   layers,
		rainfall: rainfall,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		grids:    newLRUCache[[]domain.GridCell](opts.CacheSize, opts.CacheTTL, opts.Clock),
		sims:     newLRUCache[[]domain.SimulatedWard](opts.CacheSize, opts.CacheTTL, opts.Clock),
	}
}

// CheckReadiness returns nil once a snapshot has been built.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.cur.Load() == nil {
		return errors.New("no snapshot has been built yet")
	}
	return nil
}

// Snapshot returns the current snapshot, rebuilding it when the cache TTL has
// elapsed. A failed rebuild keeps serving the previous snapshot.
func (s *Service) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	st, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return st.snap, nil
}

// Refresh rebuilds the snapshot unconditionally and drops memoized artifacts.
// On failure the previous snapshot stays in place and the error is returned.
func (s *Service) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	st, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, st.snap)
	return st.snap, nil
}

func (s *Service) refresh(ctx context.Context) (*state, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	st, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.grids.purge()
	s.sims.purge()
	s.install(st)
	return st, nil
}

func (s *Service) fresh(st *state) bool {
	return st != nil && s.opts.Clock.Since(st.builtAt) < s.opts.CacheTTL
}

func (s *Service) current(ctx context.Context) (*state, error) {
	if st := s.cur.Load(); s.fresh(st) {
		return st, nil
	}

	st, rebuilt, err := s.rebuild(ctx)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		s.publish(ctx, st.snap)
	}
	return st, nil
}

// rebuild replaces an expired snapshot. It reports whether a new snapshot
// was installed.
func (s *Service) rebuild(ctx context.Context) (*state, bool, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	prev := s.cur.Load()
	if s.fresh(prev) {
		return prev, false, nil
	}

	st, err := s.build(ctx)
	if err != nil {
		if prev != nil {
			s.logger.Error("snapshot rebuild failed, serving previous snapshot",
				"error", err,
				"computed_at", prev.snap.ComputedAt,
			)
			return prev, false, nil
		}
		return nil, false, err
	}
	if prev != nil && prev.snap.Fingerprint != st.snap.Fingerprint {
		s.grids.purge()
		s.sims.purge()
	}
	s.install(st)
	return st, true, nil
}

func (s *Service) build(ctx context.Context) (*state, error) {
	start := time.Now()
	st, err := s.assemble(ctx)
	if err != nil {
		s.metrics.PipelineBuilds.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.PipelineBuilds.WithLabelValues("success").Inc()
	s.metrics.PipelineBuildDuration.Observe(time.Since(start).Seconds())
	return st, nil
}

func (s *Service) assemble(ctx context.Context) (*state, error) {
	ds, err := s.layers.LoadLayers(ctx)
	if err != nil {
		return nil, err
	}
	if len(ds.Wards) == 0 {
		return nil, ErrNoWards
	}

	var rain []domain.RainfallRecord
	if s.rainfall != nil {
		rain, err = s.rainfall.LoadRainfall(ctx)
		if err != nil {
			return nil, err
		}
	}

	proj := spatial.ProjectorFor(wardBounds(ds.Wards))
	res, err := spatial.Aggregate(proj, ds.Wards, ds.Incidents, ds.Drains, spatial.Options{
		BufferDistance: s.opts.BufferDistance,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	points := make([]orb.Point, 0, len(ds.Incidents))
	for _, inc := range ds.Incidents {
		if pt, ok := inc.Point(); ok {
			points = append(points, pt)
		}
	}

	return &state{
		snap: &domain.Snapshot{
			Wards:           domain.ScoreWards(res.Wards),
			Incidents:       ds.Incidents,
			Drains:          res.Drains,
			Rainfall:        rain,
			RainfallSummary: domain.SummarizeRainfall(rain),
			Fingerprint:     ds.Fingerprint,
			ComputedAt:      domain.Now(),
		},
		proj:          proj,
		points:        points,
		skipped:       res.SkippedIncidents,
		outOfFrame:    res.OutOfFrameIncidents,
		drainsOutside: res.OutOfFrameDrains,
		builtAt:       s.opts.Clock.Now(),
	}, nil
}

// install makes st the current snapshot.
func (s *Service) install(st *state) {
	s.cur.Store(st)

	s.metrics.WardsScored.Set(float64(len(st.snap.Wards)))
	s.metrics.IncidentsSkipped.Set(float64(st.skipped + st.outOfFrame))
	s.metrics.SnapshotTimestamp.Set(float64(st.snap.ComputedAt.Unix()))
	s.logger.Info("snapshot built",
		"wards", len(st.snap.Wards),
		"incidents", len(st.snap.Incidents),
		"skipped_incidents", st.skipped,
		"out_of_frame_incidents", st.outOfFrame,
		"drains", len(st.snap.Drains),
		"out_of_frame_drains", st.drainsOutside,
		"rainfall_years", len(st.snap.Rainfall),
		"fingerprint", st.snap.Fingerprint,
		"central_meridian", st.proj.CentralMeridian(),
	)
}

// publish announces snap in the background. The request that triggered the
// build may end before the publish does, so only its values are kept.
func (s *Service) publish(ctx context.Context, snap *domain.Snapshot) {
	if s.opts.Publisher == nil {
		return
	}
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()

		s.publishMu.Lock()
		defer s.publishMu.Unlock()

		if st := s.cur.Load(); st == nil || st.snap != snap {
			s.logger.Debug("skipping superseded snapshot", "fingerprint", snap.Fingerprint)
			return
		}

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
		defer cancel()
		if err := s.opts.Publisher.PublishSnapshot(pctx, snap); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Error("publish snapshot failed", "error", err)
			return
		}
		s.metrics.SnapshotsPublished.Add(float64(len(snap.Wards)))
	}()
}

// WaitForPublish blocks until every pending snapshot publish has finished.
func (s *Service) WaitForPublish() {
	s.publishing.Wait()
}

// Grid builds the hotspot grid of one ward. A size of 0 selects the default
// cell size. When no cell touches the ward, the ward is returned together
// with spatial.ErrNoGridCells.
func (s *Service) Grid(ctx context.Context, code int, size float64) (domain.Ward, []domain.GridCell, error) {
	if size == 0 {
		size = s.opts.GridDefaultSize
	}
	if err := spatial.ValidateCellSize(size, s.opts.GridMinSize, s.opts.GridMaxSize); err != nil {
		s.metrics.ArtifactRequests.WithLabelValues(kindGrid, "invalid").Inc()
		return domain.Ward{}, nil, err
	}

	st, err := s.current(ctx)
	if err != nil {
		s.metrics.ArtifactRequests.WithLabelValues(kindGrid, "error").Inc()
		return domain.Ward{}, nil, err
	}
	ward, ok := st.snap.WardByCode(code)
	if !ok {
		s.metrics.ArtifactRequests.WithLabelValues(kindGrid, "invalid").Inc()
		return domain.Ward{}, nil, fmt.Errorf("%w: code %d", ErrWardNotFound, code)
	}

	key := fmt.Sprintf("grid:%s:%d:%g", st.snap.Fingerprint, code, size)
	cells, err := memoize(ctx, s, kindGrid, key, s.grids, gridCodec, func() ([]domain.GridCell, error) {
		cells, err := spatial.BuildGrid(st.proj, ward.Geometry, st.points, size)
		if errors.Is(err, spatial.ErrNoGridCells) {
			return []domain.GridCell{}, nil
		}
		return cells, err
	})
	if err != nil {
		s.metrics.ArtifactRequests.WithLabelValues(kindGrid, "error").Inc()
		return ward, nil, fmt.Errorf("grid for ward %d: %w", code, err)
	}
	if len(cells) == 0 {
		s.metrics.ArtifactRequests.WithLabelValues(kindGrid, "empty").Inc()
		return ward, nil, spatial.ErrNoGridCells
	}
	s.metrics.ArtifactRequests.WithLabelValues(kindGrid, "success").Inc()
	return ward, cells, nil
}

// Simulate projects every ward of the current snapshot under a rainfall
// multiplier. Each call returns its own slice.
func (s *Service) Simulate(ctx context.Context, multiplier float64) ([]domain.SimulatedWard, error) {
	if err := domain.ValidateMultiplier(multiplier, s.opts.MinMultiplier, s.opts.MaxMultiplier); err != nil {
		s.metrics.ArtifactRequests.WithLabelValues(kindSimulation, "invalid").Inc()
		return nil, err
	}

	st, err := s.current(ctx)
	if err != nil {
		s.metrics.ArtifactRequests.WithLabelValues(kindSimulation, "error").Inc()
		return nil, err
	}

	key := fmt.Sprintf("sim:%s:%g", st.snap.Fingerprint, multiplier)
	sim, err := memoize(ctx, s, kindSimulation, key, s.sims, simulationCodec(st.snap), func() ([]domain.SimulatedWard, error) {
		return domain.Simulate(st.snap.Wards, multiplier)
	})
	if err != nil {
		s.metrics.ArtifactRequests.WithLabelValues(kindSimulation, "error").Inc()
		return nil, err
	}
	s.metrics.ArtifactRequests.WithLabelValues(kindSimulation, "success").Inc()
	return slices.Clone(sim), nil
}

func wardBounds(wards []domain.Ward) orb.Bound {
	var (
		b     orb.Bound
		empty = true
	)
	for _, w := range wards {
		if len(w.Geometry) == 0 {
			continue
		}
		if empty {
			b = w.Geometry.Bound()
			empty = false
			continue
		}
		b = b.Union(w.Geometry.Bound())
	}
	return b
}
