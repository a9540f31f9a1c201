// Package dataset persists itinerary records as CSV.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

// Header is the column order written and expected by this package.
var Header = []string{
	"region", "label", "num_stops", "distance_m", "duration_s",
	"walk_distance_m", "transfers", "fare", "walk_ratio", "walk_strategy",
}

const bom = "\ufeff"

// WriteCSV writes records with a UTF-8 BOM so spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, records []itinerary.Record) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Region,
			r.Label,
			strconv.Itoa(r.NumStops),
			formatFloat(r.DistanceM),
			formatFloat(r.DurationS),
			formatFloat(r.WalkDistanceM),
			strconv.Itoa(r.Transfers),
			formatFloat(r.Fare),
			formatFloat(r.WalkRatio),
			r.WalkStrategy,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses records written by WriteCSV. Columns are matched by header
// name; walk_strategy may be absent in older files and defaults to "measured".
func ReadCSV(r io.Reader) ([]itinerary.Record, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(bom)); err == nil && string(b) == bom {
		if _, err := br.Discard(len(bom)); err != nil {
			return nil, err
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, required := range Header[:len(Header)-1] {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("dataset missing column %q", required)
		}
	}

	var out []itinerary.Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string, idx map[string]int) (itinerary.Record, error) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec itinerary.Record
	var err error
	rec.Region = get("region")
	rec.Label = get("label")
	if rec.NumStops, err = strconv.Atoi(get("num_stops")); err != nil {
		return rec, fmt.Errorf("num_stops: %w", err)
	}
	floats := []struct {
		col string
		dst *float64
	}{
		{"distance_m", &rec.DistanceM},
		{"duration_s", &rec.DurationS},
		{"walk_distance_m", &rec.WalkDistanceM},
		{"fare", &rec.Fare},
		{"walk_ratio", &rec.WalkRatio},
	}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(get(f.col), 64); err != nil {
			return rec, fmt.Errorf("%s: %w", f.col, err)
		}
	}
	transfers, err := strconv.ParseFloat(get("transfers"), 64)
	if err != nil {
		return rec, fmt.Errorf("transfers: %w", err)
	}
	rec.Transfers = int(transfers)
	rec.WalkStrategy = get("walk_strategy")
	if rec.WalkStrategy == "" {
		rec.WalkStrategy = "measured"
	}
	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
