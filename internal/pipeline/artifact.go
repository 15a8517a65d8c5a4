package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// codec converts an artifact to and from its shared-store encoding.
type codec[V any] struct {
	encode func(V) ([]byte, error)
	decode func([]byte) (V, error)
}

// memoize returns the artifact under key from the local cache, then the
// shared store, and computes it on a miss. Shared-store failures are logged
// and never fail the request.
func memoize[V any](ctx context.Context, s *Service, kind, key string, cache *lruCache[V], c codec[V], compute func() (V, error)) (V, error) {
	if v, ok := cache.get(key); ok {
		s.metrics.ArtifactCache.WithLabelValues(kind, "hit").Inc()
		return v, nil
	}

	if s.opts.Store != nil {
		if v, ok := loadShared(ctx, s, key, c); ok {
			s.metrics.ArtifactCache.WithLabelValues(kind, "shared_hit").Inc()
			cache.put(key, v)
			return v, nil
		}
	}
	s.metrics.ArtifactCache.WithLabelValues(kind, "miss").Inc()

	start := time.Now()
	v, err := compute()
	if err != nil {
		return v, err
	}
	s.metrics.ArtifactDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	cache.put(key, v)

	if s.opts.Store != nil {
		saveShared(ctx, s, key, c, v)
	}
	return v, nil
}

func loadShared[V any](ctx context.Context, s *Service, key string, c codec[V]) (V, bool) {
	var zero V
	data, ok, err := s.opts.Store.Load(ctx, key)
	if err != nil {
		s.logger.Warn("artifact store load failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	v, err := c.decode(data)
	if err != nil {
		s.logger.Warn("discarding undecodable artifact", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func saveShared[V any](ctx context.Context, s *Service, key string, c codec[V], v V) {
	data, err := c.encode(v)
	if err != nil {
		s.logger.Warn("artifact encode failed", "key", key, "error", err)
		return
	}
	if err := s.opts.Store.Save(ctx, key, data, s.opts.CacheTTL); err != nil {
		s.logger.Warn("artifact store save failed", "key", key, "error", err)
	}
}

// gridRecord is the stored form of a grid cell; the risk level is derived
// from the count on decode.
type gridRecord struct {
	Row      int         `json:"row"`
	Col      int         `json:"col"`
	Count    int         `json:"count"`
	Geometry orb.Polygon `json:"geometry"`
}

var gridCodec = codec[[]domain.GridCell]{
	encode: func(cells []domain.GridCell) ([]byte, error) {
		recs := make([]gridRecord, len(cells))
		for i, c := range cells {
			recs[i] = gridRecord{Row: c.Row, Col: c.Col, Count: c.IncidentCount, Geometry: c.Geometry}
		}
		return json.Marshal(recs)
	},
	decode: func(data []byte) ([]domain.GridCell, error) {
		var recs []gridRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, err
		}
		cells := make([]domain.GridCell, len(recs))
		for i, r := range recs {
			cells[i] = domain.GridCell{
				Row:           r.Row,
				Col:           r.Col,
				Geometry:      r.Geometry,
				IncidentCount: r.Count,
				RiskLevel:     domain.GridRiskLevel(r.Count),
			}
		}
		return cells, nil
	},
}

// simulationCodec stores simulated wards without geometry and reattaches
// each ward's outline from the snapshot on decode.
func simulationCodec(snap *domain.Snapshot) codec[[]domain.SimulatedWard] {
	return codec[[]domain.SimulatedWard]{
		encode: func(sim []domain.SimulatedWard) ([]byte, error) {
			return json.Marshal(sim)
		},
		decode: func(data []byte) ([]domain.SimulatedWard, error) {
			var sim []domain.SimulatedWard
			if err := json.Unmarshal(data, &sim); err != nil {
				return nil, err
			}
			for i := range sim {
				if w, ok := snap.WardByCode(sim[i].Code); ok {
					sim[i].Geometry = w.Geometry
				}
			}
			return sim, nil
		},
	}
}
