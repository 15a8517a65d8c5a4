// Package geojson reads the ward, drain and incident layers from GeoJSON files
// and writes derived tables back out as FeatureCollections.
package geojson

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

// ErrUnsupportedCRS is returned when a layer declares a reference system the
// normalizer cannot convert.
var ErrUnsupportedCRS = spatial.ErrUnsupportedCRS

// Incident and drain property names used by the source layers.
const (
	propName        = "Name"
	propLocation    = "LocationName"
	propWardName    = "WARD_NAME"
	propWardNo      = "WARDNO"
	propDescription = "Description"
)

// Files names the input layers on disk.
type Files struct {
	Wards      string
	Drains     string
	FloodProne string
	Vulnerable string
	LowLying   string
}

// Options configures how layer attributes and coordinates are interpreted.
type Options struct {
	WardNameProperty string
	WardCodeProperty string

	// FallbackCRS applies to layers without a crs member whose coordinates are
	// not longitude/latitude.
	FallbackCRS spatial.CRS
}

// Loader reads and normalizes the geometry layers.
type Loader struct {
	files  Files
	opts   Options
	logger *slog.Logger
}

// NewLoader creates a Loader for the given files.
func NewLoader(files Files, opts Options, logger *slog.Logger) *Loader {
	if opts.WardNameProperty == "" {
		opts.WardNameProperty = "KGISWardName"
	}
	if opts.WardCodeProperty == "" {
		opts.WardCodeProperty = "KGISWardNo"
	}
	if opts.FallbackCRS.Kind == 0 {
		opts.FallbackCRS = spatial.UTMZone(43, true)
	}
	return &Loader{files: files, opts: opts, logger: logger}
}

// LoadLayers reads every geometry layer. Any failure aborts the load and names
// the failing source.
func (l *Loader) LoadLayers(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset

	wards, err := l.loadWards(ctx)
	if err != nil {
		return ds, err
	}
	drains, err := l.loadDrains(ctx)
	if err != nil {
		return ds, err
	}

	var incidents []domain.IncidentPoint
	for _, layer := range []struct {
		source domain.IncidentSource
		path   string
	}{
		{domain.SourceFloodProne, l.files.FloodProne},
		{domain.SourceVulnerable, l.files.Vulnerable},
		{domain.SourceLowLying, l.files.LowLying},
	} {
		pts, err := l.loadIncidents(ctx, layer.source, layer.path)
		if err != nil {
			return ds, err
		}
		incidents = append(incidents, pts...)
	}

	fp, err := Fingerprint(l.files.Wards, l.files.Drains, l.files.FloodProne, l.files.Vulnerable, l.files.LowLying)
	if err != nil {
		return ds, err
	}

	ds.Wards = wards
	ds.Drains = drains
	ds.Incidents = incidents
	ds.Fingerprint = fp
	l.logger.Info("geometry layers loaded",
		"wards", len(wards),
		"drains", len(drains),
		"incidents", len(incidents),
	)
	return ds, nil
}

func (l *Loader) loadWards(ctx context.Context) ([]domain.Ward, error) {
	fc, err := l.readLayer(ctx, l.files.Wards)
	if err != nil {
		return nil, fmt.Errorf("load wards (%s): %w", l.files.Wards, err)
	}

	wards := make([]domain.Ward, 0, len(fc.Features))
	seen := make(map[int]bool, len(fc.Features))
	for i, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			return nil, fmt.Errorf("load wards (%s): feature %d has %T geometry, want polygon", l.files.Wards, i, f.Geometry)
		}

		code, ok := intProperty(f.Properties, l.opts.WardCodeProperty)
		if !ok {
			return nil, fmt.Errorf("load wards (%s): feature %d has no numeric %s", l.files.Wards, i, l.opts.WardCodeProperty)
		}
		if seen[code] {
			return nil, fmt.Errorf("load wards (%s): duplicate ward code %d", l.files.Wards, code)
		}
		seen[code] = true

		wards = append(wards, domain.Ward{
			Name:       stringProperty(f.Properties, l.opts.WardNameProperty),
			Code:       code,
			Geometry:   mp,
			Properties: f.Properties,
		})
	}
	return wards, nil
}

func (l *Loader) loadDrains(ctx context.Context) ([]domain.DrainSegment, error) {
	fc, err := l.readLayer(ctx, l.files.Drains)
	if err != nil {
		return nil, fmt.Errorf("load drains (%s): %w", l.files.Drains, err)
	}

	drains := make([]domain.DrainSegment, 0, len(fc.Features))
	for i, f := range fc.Features {
		var mls orb.MultiLineString
		switch g := f.Geometry.(type) {
		case orb.LineString:
			mls = orb.MultiLineString{g}
		case orb.MultiLineString:
			mls = g
		default:
			return nil, fmt.Errorf("load drains (%s): feature %d has %T geometry, want line", l.files.Drains, i, f.Geometry)
		}
		drains = append(drains, domain.DrainSegment{
			Name:        stringProperty(f.Properties, propName),
			Description: stringProperty(f.Properties, propDescription),
			Geometry:    mls,
			Properties:  f.Properties,
		})
	}
	return drains, nil
}

func (l *Loader) loadIncidents(ctx context.Context, source domain.IncidentSource, path string) ([]domain.IncidentPoint, error) {
	fc, err := l.readLayer(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s incidents (%s): %w", source, path, err)
	}

	pts := make([]domain.IncidentPoint, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		p := domain.IncidentPoint{
			Source:     source,
			Name:       stringProperty(f.Properties, propName),
			Location:   stringProperty(f.Properties, propLocation),
			WardName:   stringProperty(f.Properties, propWardName),
			WardCode:   stringProperty(f.Properties, propWardNo),
			Properties: f.Properties,
		}
		if _, ok := f.Geometry.(orb.Point); ok {
			p.Geometry = f.Geometry
		} else {
			skipped++
		}
		pts = append(pts, p)
	}
	if skipped > 0 {
		l.logger.Warn("incidents without point geometry excluded from spatial joins",
			"source", source, "count", skipped)
	}
	return pts, nil
}

// readLayer parses a FeatureCollection and normalizes its geometry to the
// geographic reference.
func (l *Loader) readLayer(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	crs, err := l.layerCRS(fc)
	if err != nil {
		return nil, err
	}
	if crs.Kind == spatial.CRSGeographic {
		return fc, nil
	}

	l.logger.Debug("reprojecting layer", "path", path, "crs", crs.String())
	for i, f := range fc.Features {
		g, err := spatial.ToGeographic(f.Geometry, crs)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		f.Geometry = g
	}
	return fc, nil
}

// layerCRS resolves the reference of a layer from its legacy crs member, or
// from its coordinate range when the member is absent.
func (l *Loader) layerCRS(fc *geojson.FeatureCollection) (spatial.CRS, error) {
	if name, ok := crsName(fc.ExtraMembers); ok {
		return spatial.ParseCRSName(name)
	}
	for _, f := range fc.Features {
		if f.Geometry != nil && !spatial.LooksGeographic(f.Geometry) {
			return l.opts.FallbackCRS, nil
		}
	}
	return spatial.Geographic, nil
}

// crsName extracts properties.name from a {"type":"name"} crs member.
func crsName(members geojson.Properties) (string, bool) {
	raw, ok := members["crs"].(map[string]any)
	if !ok {
		return "", false
	}
	props, ok := raw["properties"].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := props["name"].(string)
	return name, ok && name != ""
}

func stringProperty(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func intProperty(props geojson.Properties, key string) (int, bool) {
	switch v := props[key].(type) {
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Fingerprint identifies a set of input files by path, size and modification
// time. It changes whenever any of the files is replaced or edited.
func Fingerprint(paths ...string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
