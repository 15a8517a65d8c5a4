// Package rainfall reads the yearly rainfall series from CSV.
package rainfall

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const (
	colYear  = "year"
	colTotal = "total"
)

// monthColumns recognizes month headers in short or long form.
var monthColumns = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
	"january": true, "february": true, "march": true, "april": true, "june": true, "july": true,
	"august": true, "september": true, "october": true, "november": true, "december": true,
}

// Reader loads a rainfall CSV with a Year column, a Total column, optional
// month columns and optional categorical flag columns.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the CSV at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// LoadRainfall reads the series, sorted by year with deviations from the mean.
func (r *Reader) LoadRainfall(ctx context.Context) ([]domain.RainfallRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("load rainfall (%s): %w", r.path, err)
	}
	defer f.Close()

	records, dropped, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load rainfall (%s): %w", r.path, err)
	}
	if dropped > 0 {
		r.logger.Warn("rainfall rows without total dropped", "count", dropped)
	}
	r.logger.Info("rainfall series loaded", "years", len(records))
	return domain.EnrichRainfall(records), nil
}

// column describes how one CSV column is interpreted.
type column struct {
	kind  columnKind
	name  string
	month string
}

type columnKind int

const (
	kindFlag columnKind = iota
	kindYear
	kindTotal
	kindMonth
)

// Parse decodes rainfall rows. An unparseable year becomes 0; rows whose
// total is empty or not numeric are dropped and counted.
func Parse(in io.Reader) ([]domain.RainfallRecord, int, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, errors.New("empty file")
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols, err := classifyHeader(header)
	if err != nil {
		return nil, 0, err
	}

	var (
		out     []domain.RainfallRecord
		dropped int
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		rec, ok := parseRow(cols, row)
		if !ok {
			dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, dropped, nil
}

func classifyHeader(header []string) ([]column, error) {
	cols := make([]column, len(header))
	var hasYear, hasTotal bool
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		lower := strings.ToLower(name)
		switch {
		case lower == colYear:
			cols[i] = column{kind: kindYear, name: name}
			hasYear = true
		case lower == colTotal:
			cols[i] = column{kind: kindTotal, name: name}
			hasTotal = true
		case monthColumns[lower]:
			cols[i] = column{kind: kindMonth, name: name, month: name}
		default:
			cols[i] = column{kind: kindFlag, name: name}
		}
	}
	if !hasYear || !hasTotal {
		return nil, fmt.Errorf("header must contain Year and Total columns, got %v", header)
	}
	return cols, nil
}

func parseRow(cols []column, row []string) (domain.RainfallRecord, bool) {
	var (
		rec      domain.RainfallRecord
		hasTotal bool
	)
	for i, raw := range row {
		if i >= len(cols) {
			break
		}
		v := strings.TrimSpace(raw)
		c := cols[i]
		switch c.kind {
		case kindYear:
			rec.Year = parseYear(v)
		case kindTotal:
			total, err := strconv.ParseFloat(v, 64)
			if err == nil && finite(total) {
				rec.Total = total
				hasTotal = true
			}
		case kindMonth:
			if val, err := strconv.ParseFloat(v, 64); err == nil && finite(val) {
				rec.Monthly = append(rec.Monthly, domain.MonthlyRainfall{Month: c.month, Value: val})
			}
		case kindFlag:
			if v == "" {
				continue
			}
			if rec.Flags == nil {
				rec.Flags = make(map[string]string)
			}
			rec.Flags[c.name] = v
		}
	}
	return rec, hasTotal
}

// parseYear accepts integer or float-formatted years; anything else is 0.
func parseYear(v string) int {
	if n, err := strconv.Atoi(v); err == nil && n >= math.MinInt32 && n <= math.MaxInt32 {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && finite(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return int(f)
	}
	return 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
