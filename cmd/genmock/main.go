// Command genmock writes a synthetic city as the input files the service reads:
// a ward layer, a drain layer, the three incident layers and a rainfall CSV.
// The file names match the service defaults, so pointing DATA_DIR at the output
// directory is enough to run against it.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -rows 4 -cols 5 -incidents 120
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/synthetic"
)

// Default input file names, one per layer.
const (
	wardsFile    = "bbmp-wards.geojson"
	drainsFile   = "bangalore_swd_primary.geojson"
	rainfallFile = "bangalore-rainfall-data-1900-2024-sept.csv"
)

var incidentFiles = map[domain.IncidentSource]string{
	domain.SourceFloodProne: "flood-prone-locations.geojson",
	domain.SourceVulnerable: "flood-vulnerable-locations.geojson",
	domain.SourceLowLying:   "low-lying-areas.geojson",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "output directory")
	rows := flag.Int("rows", 4, "ward rows")
	cols := flag.Int("cols", 5, "ward columns")
	wardSize := flag.Float64("ward-size", 1000, "ward side length in meters")
	incidents := flag.Int("incidents", 120, "number of incident points")
	seed := flag.Uint64("seed", 1, "random seed")
	firstYear := flag.Int("first-year", 1990, "first rainfall year")
	years := flag.Int("years", 35, "number of rainfall years")
	flag.Parse()

	ds, err := synthetic.City(synthetic.Options{
		Rows:      *rows,
		Cols:      *cols,
		WardSize:  *wardSize,
		Incidents: *incidents,
		Seed:      *seed,
	})
	if err != nil {
		return fmt.Errorf("generate city: %w", err)
	}
	rain := synthetic.Rainfall(*firstYear, *years, *seed)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	if err := writeLayer(filepath.Join(*out, wardsFile), wardLayer(ds.Wards)); err != nil {
		return fmt.Errorf("writing wards: %w", err)
	}
	if err := writeLayer(filepath.Join(*out, drainsFile), drainLayer(ds.Drains)); err != nil {
		return fmt.Errorf("writing drains: %w", err)
	}
	for _, src := range domain.IncidentSources {
		if err := writeLayer(filepath.Join(*out, incidentFiles[src]), incidentLayer(ds.Incidents, src)); err != nil {
			return fmt.Errorf("writing %s incidents: %w", src, err)
		}
	}
	if err := writeRainfall(filepath.Join(*out, rainfallFile), rain); err != nil {
		return fmt.Errorf("writing rainfall: %w", err)
	}

	log.Printf("wrote %d wards, %d drains, %d incidents and %d rainfall years to %s",
		len(ds.Wards), len(ds.Drains), len(ds.Incidents), len(rain), *out)
	printStats(ds, rain)
	return nil
}

func wardLayer(wards []domain.Ward) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, w := range wards {
		f := geojson.NewFeature(w.Geometry)
		f.Properties = geojson.Properties(w.Properties)
		fc.Append(f)
	}
	return fc
}

func drainLayer(drains []domain.DrainSegment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, d := range drains {
		f := geojson.NewFeature(d.Geometry)
		f.Properties = geojson.Properties(d.Properties)
		fc.Append(f)
	}
	return fc
}

func incidentLayer(incidents []domain.IncidentPoint, src domain.IncidentSource) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range incidents {
		if p.Source != src {
			continue
		}
		f := geojson.NewFeature(p.Geometry)
		f.Properties = geojson.Properties(p.Properties)
		fc.Append(f)
	}
	return fc
}

func writeLayer(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeRainfall(path string, records []domain.RainfallRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"Year"}, synthetic.Months...)
	header = append(header, "Total", "El Nino")
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(r.Year))
		for _, m := range r.Monthly {
			row = append(row, strconv.FormatFloat(m.Value, 'f', 1, 64))
		}
		row = append(row, strconv.FormatFloat(r.Total, 'f', 1, 64), r.Flags["El Nino"])
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func printStats(ds domain.Dataset, rain []domain.RainfallRecord) {
	fmt.Println("\n--- Incidents by source ---")
	for _, c := range domain.IncidentCountsBySource(ds.Incidents) {
		fmt.Printf("  %-12s %d\n", c.Name, c.Count)
	}

	fmt.Println("\n--- Incidents by ward (top 5) ---")
	byWard := domain.IncidentCountsByWard(ds.Incidents)
	for _, c := range byWard[:min(5, len(byWard))] {
		fmt.Printf("  %-12s %d\n", c.Name, c.Count)
	}

	s := domain.SummarizeRainfall(rain)
	fmt.Println("\n--- Rainfall ---")
	fmt.Printf("  years      %d-%d\n", s.FirstYear, s.LastYear)
	fmt.Printf("  mean       %.1f mm (sd %.1f)\n", s.Mean, s.StdDev)
	fmt.Printf("  wettest    %d (%.1f mm)\n", s.WettestYear, s.WettestMM)
	fmt.Printf("  driest     %d (%.1f mm)\n", s.DriestYear, s.DriestMM)
}
