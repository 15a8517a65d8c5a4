package spatial

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"
	"github.com/paulmach/orb"
)

// ErrUnsupportedCRS is returned for a coordinate reference the normalizer cannot convert.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// CRSKind classifies a coordinate reference system.
type CRSKind int

const (
	CRSGeographic CRSKind = iota + 1
	CRSUTM
)

// CRS identifies the coordinate reference of an input layer.
type CRS struct {
	Kind     CRSKind
	Zone     int
	Northern bool
}

// Geographic is WGS-84 longitude/latitude, the canonical reference for every layer.
var Geographic = CRS{Kind: CRSGeographic}

// UTMZone returns the WGS-84 UTM reference for a zone and hemisphere.
func UTMZone(zone int, northern bool) CRS {
	return CRS{Kind: CRSUTM, Zone: zone, Northern: northern}
}

func (c CRS) String() string {
	switch c.Kind {
	case CRSGeographic:
		return "EPSG:4326"
	case CRSUTM:
		if c.Northern {
			return fmt.Sprintf("EPSG:%d", 32600+c.Zone)
		}
		return fmt.Sprintf("EPSG:%d", 32700+c.Zone)
	default:
		return "unknown"
	}
}

// FromEPSG maps an EPSG code to a supported reference.
func FromEPSG(code int) (CRS, error) {
	switch {
	case code == 4326:
		return Geographic, nil
	case code > 32600 && code <= 32660:
		return UTMZone(code-32600, true), nil
	case code > 32700 && code <= 32760:
		return UTMZone(code-32700, false), nil
	default:
		return CRS{}, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, code)
	}
}

var epsgName = regexp.MustCompile(`(?i)EPSG:{1,2}(\d+)$`)

// ParseCRSName resolves a GeoJSON named-CRS string such as "EPSG:32643",
// "urn:ogc:def:crs:EPSG::4326" or "urn:ogc:def:crs:OGC:1.3:CRS84".
func ParseCRSName(name string) (CRS, error) {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToUpper(name), "CRS84") {
		return Geographic, nil
	}
	m := epsgName.FindStringSubmatch(name)
	if m == nil {
		return CRS{}, fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return CRS{}, fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
	}
	return FromEPSG(code)
}

// LooksGeographic reports whether every coordinate of g lies within
// longitude/latitude bounds. Empty geometries count as geographic.
func LooksGeographic(g orb.Geometry) bool {
	if g == nil {
		return true
	}
	b := g.Bound()
	return b.Min.X() >= -180 && b.Max.X() <= 180 && b.Min.Y() >= -90 && b.Max.Y() <= 90
}

// ToGeographic returns g expressed in the canonical geographic reference.
// Geometries already in the geographic reference pass through unchanged, so
// normalizing twice yields identical coordinates.
func ToGeographic(g orb.Geometry, from CRS) (orb.Geometry, error) {
	switch from.Kind {
	case CRSGeographic:
		return g, nil
	case CRSUTM:
		return transform(g, func(pt orb.Point) (orb.Point, error) {
			lat, lon, err := UTM.ToLatLon(pt.X(), pt.Y(), from.Zone, "", from.Northern)
			if err != nil {
				return orb.Point{}, fmt.Errorf("reproject %s: %w", from, err)
			}
			return orb.Point{lon, lat}, nil
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCRS, from)
	}
}
