// Command validate loads the configured input layers, builds a snapshot with
// the same pipeline the service runs, and checks the inputs and the scored
// output for integrity. It can also write the scored wards and a simulation
// as GeoJSON for offline review.
//
// Usage:
//
//	DATA_DIR=data/mock go run ./cmd/validate \
//	  -out scored-wards.geojson \
//	  -sim-out simulation.geojson -multiplier 2
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"

	geojsonadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/geojson"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/rainfall"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

func main() {
	out := flag.String("out", "", "optional path for the scored ward GeoJSON")
	simOut := flag.String("sim-out", "", "optional path for the simulation GeoJSON")
	multiplier := flag.Float64("multiplier", 2, "rainfall multiplier for -sim-out")
	flag.Parse()

	if code := run(*out, *simOut, *multiplier); code != 0 {
		os.Exit(code)
	}
}

func run(outPath, simPath string, multiplier float64) int {
	// Fixed clock so written artifacts are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg)

	fallback, err := spatial.FromEPSG(cfg.SourceEPSG)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: SOURCE_EPSG: %v\n", err)
		return 1
	}
	layers := geojsonadapter.NewLoader(geojsonadapter.Files{
		Wards:      cfg.WardsFile,
		Drains:     cfg.DrainsFile,
		FloodProne: cfg.FloodProneFile,
		Vulnerable: cfg.VulnerableFile,
		LowLying:   cfg.LowLyingFile,
	}, geojsonadapter.Options{
		WardNameProperty: cfg.WardNameProperty,
		WardCodeProperty: cfg.WardCodeProperty,
		FallbackCRS:      fallback,
	}, logger)

	opts := pipeline.OptionsFromConfig(cfg)
	svc := pipeline.New(layers, rainfall.NewReader(cfg.RainfallFile, logger), opts, logger, observability.NewMetrics())

	fmt.Println("=== Flood Risk Data Validation ===")
	fmt.Println()

	ctx := context.Background()
	snap, err := svc.Refresh(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build snapshot: %v\n", err)
		return 1
	}

	phases := validate(snap, cfg.SimMinMultiplier, cfg.SimMaxMultiplier)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Inputs: %d wards, %d incidents, %d drains, %d rainfall years\n",
		len(snap.Wards), len(snap.Incidents), len(snap.Drains), len(snap.Rainfall))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if outPath != "" {
		fc := geojsonadapter.Wards(snap.Wards)
		fc.ExtraMembers = geojson.Properties{"computed_at": snap.ComputedAt.Format(time.RFC3339)}
		if err := writeCollection(outPath, fc); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: write %s: %v\n", outPath, err)
			return 1
		}
		fmt.Printf("\nwrote scored wards: %s\n", outPath)
	}

	if simPath != "" {
		sim, err := svc.Simulate(ctx, multiplier)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: simulate: %v\n", err)
			return 1
		}
		if err := writeCollection(simPath, geojsonadapter.Simulation(sim)); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: write %s: %v\n", simPath, err)
			return 1
		}
		fmt.Printf("wrote simulation (x%g): %s\n", multiplier, simPath)
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func writeCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
