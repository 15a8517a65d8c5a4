package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/geojson"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

const (
	defaultMultiplier = 1.0
	defaultTopN       = 10

	noHotspotMessage = "no hotspot data available for this ward at the selected cell size"
)

func (s *Server) handleWards(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	fc := geojson.Wards(snap.Wards)
	fc.ExtraMembers = map[string]any{
		"computed_at": snap.ComputedAt.Format(time.RFC3339),
		"scale":       domain.ScaleOf(snap.Wards),
	}
	writeGeoJSON(w, fc)
}

func (s *Server) handleWard(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	ward, ok := lookupWard(snap, r.PathValue("ward"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("ward %q not found", r.PathValue("ward")))
		return
	}
	writeGeoJSON(w, geojson.WardFeature(ward))
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	size, err := floatParam(r, "size", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	ward, ok := lookupWard(snap, r.PathValue("ward"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("ward %q not found", r.PathValue("ward")))
		return
	}

	ward, cells, err := s.svc.Grid(r.Context(), ward.Code, size)
	if errors.Is(err, spatial.ErrNoGridCells) {
		fc := geojson.Grid(ward, nil)
		fc.ExtraMembers["message"] = noHotspotMessage
		writeGeoJSON(w, fc)
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeGeoJSON(w, geojson.Grid(ward, cells))
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	multiplier, err := floatParam(r, "multiplier", defaultMultiplier)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sim, err := s.svc.Simulate(r.Context(), multiplier)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	fc := geojson.Simulation(sim)
	fc.ExtraMembers = map[string]any{"rainfall_multiplier": multiplier}
	writeGeoJSON(w, fc)
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source != "" && !domain.ValidIncidentSource(source) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown incident source %q", source))
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeGeoJSON(w, geojson.Incidents(snap.IncidentsBySource(domain.IncidentSource(source))))
}

func (s *Server) handleDrains(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeGeoJSON(w, geojson.Drains(snap.Drains))
}

func (s *Server) handleRainfall(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"records": snap.Rainfall,
		"summary": snap.RainfallSummary,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	top := defaultTopN
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
		top = n
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.Summarize(snap, top))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	names := r.URL.Query()["ward"]
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "at least one ward parameter is required")
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"wards": domain.Compare(snap.Wards, names),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Refresh(r.Context())
	if err != nil {
		s.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "refreshed",
		"wards":       len(snap.Wards),
		"fingerprint": snap.Fingerprint,
		"computed_at": snap.ComputedAt.Format(time.RFC3339),
	})
}

// snapshot fetches the current snapshot, writing a 503 when none is available.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*domain.Snapshot, bool) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("snapshot unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return snap, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrWardNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, spatial.ErrInvalidCellSize), errors.Is(err, domain.ErrInvalidMultiplier):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

// lookupWard resolves a path segment as a ward code, falling back to the ward name.
func lookupWard(snap *domain.Snapshot, key string) (domain.Ward, bool) {
	if code, err := strconv.Atoi(key); err == nil {
		if w, ok := snap.WardByCode(code); ok {
			return w, true
		}
	}
	return snap.WardByName(key)
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return f, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

func writeGeoJSON(w http.ResponseWriter, v json.Marshaler) {
	data, err := v.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode geojson: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client went away
}
