// Package synthetic generates deterministic city datasets for fixtures and
// tests: a rectangular block of square wards with clustered incidents, a
// partial drain network and a rainfall series.
package synthetic

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

// Bengaluru is the default city center.
var Bengaluru = orb.Point{77.5946, 12.9716}

// Options sizes the generated city. Zero values take the defaults.
type Options struct {
	Origin    orb.Point // lower-left corner of the ward block, default Bengaluru
	Rows      int       // default 3
	Cols      int       // default 3
	WardSize  float64   // ward side in meters, default 1000
	Incidents int       // default 60
	Seed      uint64
}

func (o *Options) applyDefaults() {
	if o.Origin == (orb.Point{}) {
		o.Origin = Bengaluru
	}
	if o.Rows <= 0 {
		o.Rows = 3
	}
	if o.Cols <= 0 {
		o.Cols = 3
	}
	if o.WardSize <= 0 {
		o.WardSize = 1000
	}
	if o.Incidents <= 0 {
		o.Incidents = 60
	}
}

// City builds the dataset. Ward codes run row-major from 1. Incidents favor
// low ward codes, and drains run along every other row of wards, so both
// scores and drainage vary across the city.
func City(opts Options) (domain.Dataset, error) {
	opts.applyDefaults()
	f, err := newFrame(opts.Origin)
	if err != nil {
		return domain.Dataset{}, err
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	size := opts.WardSize
	n := opts.Rows * opts.Cols

	wards := make([]domain.Ward, 0, n)
	for r := range opts.Rows {
		for c := range opts.Cols {
			code := r*opts.Cols + c + 1
			name := fmt.Sprintf("Ward %d", code)
			x0, y0 := float64(c)*size, float64(r)*size
			ring, err := f.ring([][2]float64{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}})
			if err != nil {
				return domain.Dataset{}, err
			}
			wards = append(wards, domain.Ward{
				Name:       name,
				Code:       code,
				Geometry:   orb.MultiPolygon{{ring}},
				Properties: map[string]any{"KGISWardName": name, "KGISWardNo": code},
			})
		}
	}

	incidents := make([]domain.IncidentPoint, 0, opts.Incidents)
	for i := range opts.Incidents {
		u := rng.Float64()
		idx := min(int(u*u*float64(n)), n-1)
		r, c := idx/opts.Cols, idx%opts.Cols
		dx := (float64(c) + 0.05 + 0.9*rng.Float64()) * size
		dy := (float64(r) + 0.05 + 0.9*rng.Float64()) * size
		pt, err := f.at(dx, dy)
		if err != nil {
			return domain.Dataset{}, err
		}
		src := domain.IncidentSources[i%len(domain.IncidentSources)]
		name := fmt.Sprintf("%s site %d", src, i+1)
		ward := wards[idx]
		incidents = append(incidents, domain.IncidentPoint{
			Source:   src,
			Name:     name,
			WardName: ward.Name,
			WardCode: fmt.Sprint(ward.Code),
			Geometry: pt,
			Properties: map[string]any{
				"Name":      name,
				"WARD_NAME": ward.Name,
				"WARDNO":    ward.Code,
			},
		})
	}

	var drains []domain.DrainSegment
	width := float64(opts.Cols) * size
	for r := 0; r < opts.Rows; r += 2 {
		y := (float64(r) + 0.5) * size
		a, err := f.at(0.1*size, y)
		if err != nil {
			return domain.Dataset{}, err
		}
		b, err := f.at(width-0.1*size, y)
		if err != nil {
			return domain.Dataset{}, err
		}
		name := fmt.Sprintf("Valley drain %d", r/2+1)
		drains = append(drains, domain.DrainSegment{
			Name:        name,
			Description: "primary",
			Geometry:    orb.MultiLineString{{a, b}},
			Properties:  map[string]any{"Name": name, "Description": "primary"},
		})
	}

	return domain.Dataset{
		Wards:       wards,
		Incidents:   incidents,
		Drains:      drains,
		Fingerprint: fmt.Sprintf("synthetic-%d-%dx%d", opts.Seed, opts.Rows, opts.Cols),
	}, nil
}

// Months are the monthly columns of the generated rainfall series.
var Months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// monsoon weights the months so totals peak in September and October.
var monsoon = []float64{0.2, 0.3, 0.5, 1.2, 3.0, 2.5, 2.8, 3.6, 5.0, 4.8, 1.8, 0.6}

// Rainfall generates years of monthly rainfall in millimeters starting at
// firstYear, with an El Nino flag on roughly one year in four.
func Rainfall(firstYear, years int, seed uint64) []domain.RainfallRecord {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]domain.RainfallRecord, 0, years)
	for y := range years {
		rec := domain.RainfallRecord{
			Year:    firstYear + y,
			Monthly: make([]domain.MonthlyRainfall, len(Months)),
			Flags:   map[string]string{"El Nino": "No"},
		}
		for i, m := range Months {
			v := math.Round(monsoon[i]*(20+20*rng.Float64())*10) / 10
			rec.Monthly[i] = domain.MonthlyRainfall{Month: m, Value: v}
			rec.Total += v
		}
		rec.Total = math.Round(rec.Total*10) / 10
		if rng.IntN(4) == 0 {
			rec.Flags["El Nino"] = "Yes"
		}
		out = append(out, rec)
	}
	return domain.EnrichRainfall(out)
}

// frame places points by meter offsets from an origin.
type frame struct {
	proj   *spatial.Projector
	origin orb.Point
}

func newFrame(origin orb.Point) (*frame, error) {
	proj := spatial.NewProjector(origin)
	o, err := proj.Forward(origin)
	if err != nil {
		return nil, err
	}
	return &frame{proj: proj, origin: o}, nil
}

func (f *frame) at(dx, dy float64) (orb.Point, error) {
	return f.proj.Inverse(orb.Point{f.origin.X() + dx, f.origin.Y() + dy})
}

func (f *frame) ring(offsets [][2]float64) (orb.Ring, error) {
	ring := make(orb.Ring, 0, len(offsets)+1)
	for _, o := range offsets {
		pt, err := f.at(o[0], o[1])
		if err != nil {
			return nil, err
		}
		ring = append(ring, pt)
	}
	return append(ring, ring[0]), nil
}
